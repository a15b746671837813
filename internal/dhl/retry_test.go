package dhl

import (
	"testing"
	"time"
)

func TestDefaultRetryPolicy(t *testing.T) {
	p := DefaultRetryPolicy()

	if p.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", p.MaxAttempts)
	}
	if p.BaseDelay != 1*time.Second {
		t.Errorf("BaseDelay = %v, want 1s", p.BaseDelay)
	}
	if p.BackoffFactor != 2 {
		t.Errorf("BackoffFactor = %d, want 2", p.BackoffFactor)
	}
}

func TestRetryPolicy_IsRetryableStatus(t *testing.T) {
	p := DefaultRetryPolicy()

	tests := []struct {
		statusCode int
		want       bool
	}{
		{200, false},
		{201, false},
		{400, false},
		{401, false},
		{404, false},
		{429, false},
		{500, true},
		{501, false},
		{502, true},
		{503, true},
		{504, true},
	}

	for _, tt := range tests {
		if got := p.IsRetryableStatus(tt.statusCode); got != tt.want {
			t.Errorf("IsRetryableStatus(%d) = %v, want %v", tt.statusCode, got, tt.want)
		}
	}
}

func TestRetryPolicy_Delay_DoublesEachRetry(t *testing.T) {
	p := DefaultRetryPolicy()

	tests := []struct {
		retry int
		want  time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
	}

	for _, tt := range tests {
		if got := p.Delay(tt.retry); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.retry, got, tt.want)
		}
	}
}
