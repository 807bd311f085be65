// Copyright Financial Chatbot Authors
// SPDX-License-Identifier: Apache-2.0

package provider

import (
	"context"
	"fmt"
	"testing"
)

type fakeBackend struct {
	endpoint string
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry[*fakeBackend]("test")
	reg.Register("fake", func(_ context.Context, params map[string]string) (*fakeBackend, error) {
		return &fakeBackend{endpoint: params["endpoint"]}, nil
	})

	b, err := reg.New(context.Background(), "fake", map[string]string{"endpoint": "http://x"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if b.endpoint != "http://x" {
		t.Errorf("endpoint = %q", b.endpoint)
	}

	if _, err := reg.New(context.Background(), "missing", nil); err == nil {
		t.Error("expected error for unknown name")
	}

	if got := reg.Available(); len(got) != 1 || got[0] != "fake" {
		t.Errorf("Available = %v", got)
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	reg := NewRegistry[*fakeBackend]("test")
	factory := func(_ context.Context, _ map[string]string) (*fakeBackend, error) {
		return nil, fmt.Errorf("unused")
	}
	reg.Register("fake", factory)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	reg.Register("fake", factory)
}
