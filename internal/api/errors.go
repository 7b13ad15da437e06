package api

import (
	"encoding/json"
	"errors"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/deskpilot/deskpilot/internal/agent"
)

type errorPayload struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
	RequestID string `json:"request_id"`
}

// wrapError translates SDK API errors into *agent.RequestError so the loop
// can recover from them. Transport and context errors pass through untouched.
func wrapError(err error) error {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	reqErr := &agent.RequestError{
		StatusCode:   apiErr.StatusCode,
		RequestID:    apiErr.RequestID,
		HTTPRequest:  apiErr.Request,
		HTTPResponse: apiErr.Response,
		Cause:        err,
	}

	if raw := apiErr.RawJSON(); raw != "" {
		var payload errorPayload
		if json.Unmarshal([]byte(raw), &payload) == nil {
			if payload.Error.Message != "" {
				reqErr.Message = payload.Error.Message
			}
			if payload.RequestID != "" {
				reqErr.RequestID = payload.RequestID
			}
		}
	}
	if reqErr.Message == "" {
		reqErr.Message = "request failed"
	}

	return reqErr
}
