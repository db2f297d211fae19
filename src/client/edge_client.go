package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"coindash/src/helpers"
	"coindash/src/interfaces"
	"coindash/src/logger"
	"coindash/src/models"
)

// -----------------------------------------------------------------------------
// EdgeClient talks to the edge cache service over HTTP.
// -----------------------------------------------------------------------------

type EdgeClient struct {
	BaseURL string
	Network interfaces.INetworkManager
	Logger  *logger.Logger
}

// -----------------------------------------------------------------------------

func NewEdgeClient(baseURL string, nm interfaces.INetworkManager, l *logger.Logger) *EdgeClient {
	return &EdgeClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Network: nm,
		Logger:  l,
	}
}

// -----------------------------------------------------------------------------

// FetchSeries posts the request to /api/series. Error responses carry a
// well-formed JSON body; both that body and a malformed one surface as an
// UpstreamError.
func (e *EdgeClient) FetchSeries(ctx context.Context, req models.MSeriesRequest) (*models.MSeriesResponse, error) {
	body, status, err := e.Network.PostJSON(ctx, e.BaseURL+"/api/series", req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, helpers.NewUpstreamError("edge request failed", err)
	}

	if status != http.StatusOK {
		var errResp models.MErrorResponse
		if jsonErr := json.Unmarshal(body, &errResp); jsonErr == nil && errResp.Error != "" {
			return nil, helpers.NewUpstreamError(
				fmt.Sprintf("edge returned %d: %s", status, errResp.Error), nil)
		}
		return nil, helpers.NewUpstreamError(fmt.Sprintf("edge returned %d", status), nil)
	}

	var resp models.MSeriesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, helpers.NewInvalidFormatError("edge response is not valid JSON")
	}

	return &resp, nil
}
