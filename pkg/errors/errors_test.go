package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError(t *testing.T) {
	cause := errors.New("disk full")
	err := SinkFailure("file", cause)

	if !Is(err, CodeSinkFailure) {
		t.Errorf("Is(SINK_FAILURE) = false")
	}
	if !errors.Is(err, cause) {
		t.Errorf("应能展开到原始错误")
	}
	if got := GetHTTPStatus(err); got != http.StatusBadGateway {
		t.Errorf("status = %d", got)
	}
	if err.Fields["sink"] != "file" {
		t.Errorf("fields = %v", err.Fields)
	}

	wrapped := fmt.Errorf("publish: %w", InvalidConfig("alpha", "越界"))
	if GetCode(wrapped) != CodeInvalidConfig {
		t.Errorf("code = %s", GetCode(wrapped))
	}
	if GetCode(cause) != CodeUnknown || GetHTTPStatus(cause) != http.StatusInternalServerError {
		t.Errorf("普通错误应为 UNKNOWN/500")
	}
}

func TestValidationErrors(t *testing.T) {
	ve := &ValidationErrors{}
	if ve.Err(CodeInvalidConfig) != nil {
		t.Fatal("无错误时应返回 nil")
	}

	ve.Add("alpha", "必须小于 1")
	ve.Add("steps_per_temp", "必须至少为 1")

	err := ve.Err(CodeInvalidConfig)
	if !Is(err, CodeInvalidConfig) {
		t.Fatalf("code = %s", GetCode(err))
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		t.Fatal("应为 AppError")
	}
	if len(appErr.Fields) != 2 || appErr.HTTPStatus != http.StatusBadRequest {
		t.Errorf("fields = %v status = %d", appErr.Fields, appErr.HTTPStatus)
	}
}

func TestCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeInvalidInput, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeTimeout, http.StatusGatewayTimeout},
		{CodeInvariantViolation, http.StatusUnprocessableEntity},
		{CodeDatabaseError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := codeToHTTPStatus(tt.code); got != tt.want {
			t.Errorf("%s = %d, want %d", tt.code, got, tt.want)
		}
	}
}
