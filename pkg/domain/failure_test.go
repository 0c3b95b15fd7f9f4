package domain_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/aretw0/nkas/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want domain.FailureClass
	}{
		{"nil", nil, domain.Unclassified},
		{"explicit transient", domain.NewFailure(domain.Transient, "shell", errors.New("x")), domain.Transient},
		{"wrapped explicit fatal", fmt.Errorf("outer: %w", domain.NewFailure(domain.Fatal, "", errors.New("x"))), domain.Fatal},
		{"deadline", context.DeadlineExceeded, domain.Transient},
		{"eof", fmt.Errorf("read: %w", io.EOF), domain.Transient},
		{"truncated", domain.ErrImageTruncated, domain.Protocol},
		{"unknown method", domain.ErrUnknownControlMethod, domain.Fatal},
		{"plain", errors.New("boom"), domain.Protocol},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.Classify(tt.err))
		})
	}
}

func TestTakeoverError_IsFatalEvenWhenLastWasTransient(t *testing.T) {
	err := &domain.TakeoverError{
		Op:       "click",
		Attempts: 5,
		Last:     domain.Transient,
		Err:      domain.NewFailure(domain.Transient, "shell", io.EOF),
	}

	assert.True(t, domain.IsTakeover(err))
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, domain.Fatal, domain.Classify(err))
	assert.Contains(t, err.Error(), "click failed after 5 attempt(s)")
}

func TestCommandArgs(t *testing.T) {
	assert.Equal(t, []string{"input", "tap", "10", "20"}, domain.Tap(domain.Pt(10, 20)).Args())
	assert.Equal(t,
		[]string{"input", "swipe", "1", "2", "3", "4", "200"},
		domain.Swipe(domain.Pt(1, 2), domain.Pt(3, 4), 0).Args())
	assert.Equal(t,
		[]string{"input", "swipe", "1", "2", "3", "4", "1000"},
		domain.Drag(domain.Pt(1, 2), domain.Pt(3, 4), 0).Args())
	assert.Equal(t,
		[]string{"am", "start", "-n", "com.example/.Main"},
		domain.AppStart("com.example", ".Main").Args())
	assert.Equal(t, []string{"am", "force-stop", "com.example"}, domain.AppStop("com.example").Args())

	argv := []string{"dumpsys", "window"}
	q := domain.Query(argv...)
	argv[0] = "mutated"
	assert.Equal(t, []string{"dumpsys", "window"}, q.Args())
}
