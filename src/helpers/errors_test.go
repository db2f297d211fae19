package helpers

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestErrorTaxonomy_AsAndUnwrap(t *testing.T) {
	cause := errors.New("socket closed")

	var ue *UpstreamError
	if err := NewUpstreamError("provider call failed", cause); !errors.As(err, &ue) || !errors.Is(err, cause) {
		t.Error("UpstreamError must match via As and unwrap its cause")
	}

	var te *TransportError
	if err := NewTransportError("websocket dial failed", cause); !errors.As(err, &te) || !errors.Is(err, cause) {
		t.Error("TransportError must match via As and unwrap its cause")
	}

	var fe *InvalidFormatError
	if err := NewInvalidFormatError("no price points"); !errors.As(err, &fe) {
		t.Error("InvalidFormatError must match via As")
	}
}

func TestErrorTaxonomy_MessagesIncludeCause(t *testing.T) {
	err := NewUpstreamError("provider call failed", errors.New("rate limited"))
	if got := err.Error(); !strings.Contains(got, "provider call failed") || !strings.Contains(got, "rate limited") {
		t.Errorf("expected message and cause, got %q", got)
	}

	bare := NewInvalidFormatError("no price points")
	if got := bare.Error(); got != "no price points" {
		t.Errorf("expected the bare message without a cause suffix, got %q", got)
	}
}

func TestIsTimeout(t *testing.T) {
	direct := NewTimeoutError("remote call timed out", nil)
	if !IsTimeout(direct) {
		t.Error("expected IsTimeout for a TimeoutError")
	}

	wrapped := fmt.Errorf("fetch failed: %w", direct)
	if !IsTimeout(wrapped) {
		t.Error("expected IsTimeout through wrapping")
	}

	if IsTimeout(NewUpstreamError("provider down", nil)) {
		t.Error("non-timeout errors must not report as timeouts")
	}
}

func TestReconnectExhaustedError(t *testing.T) {
	err := NewReconnectExhaustedError("bitcoin:7:usd")

	var re *ReconnectExhaustedError
	if !errors.As(err, &re) {
		t.Fatalf("expected ReconnectExhaustedError, got %T", err)
	}
	if re.Topic != "bitcoin:7:usd" {
		t.Errorf("unexpected topic %q", re.Topic)
	}
	if !strings.Contains(err.Error(), "bitcoin:7:usd") {
		t.Errorf("expected the message to name the topic, got %q", err.Error())
	}
}

func TestRetryWithBackoff(t *testing.T) {
	calls := 0
	err := RetryWithBackoff("flaky", 3, time.Millisecond, func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Errorf("expected success on the second attempt, got err=%v calls=%d", err, calls)
	}

	calls = 0
	boom := errors.New("permanent")
	err = RetryWithBackoff("hopeless", 3, time.Millisecond, func() error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) || calls != 3 {
		t.Errorf("expected the last error after 3 attempts, got err=%v calls=%d", err, calls)
	}
}
