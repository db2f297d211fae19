package utils

import (
	"fmt"
	"strings"
)

// -----------------------------------------------------------------------------
// Topic keys identify one (assetId, range, currency) tuple. The same format
// is used for the memory cache, the pending-request map, the realtime
// channel registry and the broadcast topic name.
// -----------------------------------------------------------------------------

// TopicKey builds the canonical "asset:range:currency" key.
func TopicKey(assetID, rng, currency string) string {
	return fmt.Sprintf("%s:%s:%s", assetID, rng, strings.ToLower(currency))
}

// -----------------------------------------------------------------------------

// ParseTopicKey splits a canonical key back into its tuple.
func ParseTopicKey(key string) (assetID, rng, currency string, err error) {
	parts := strings.Split(key, ":")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", fmt.Errorf("malformed topic key: %q", key)
	}
	return parts[0], parts[1], parts[2], nil
}
