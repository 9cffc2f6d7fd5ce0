// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package container

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

// mockExecutor records calls and returns configured responses.
type mockExecutor struct {
	availableBins map[string]bool // binary -> whether LookPath succeeds
	runnableCmds  map[string]bool // "bin arg1 arg2" -> whether RunSilent succeeds
	runPipedFunc  func(name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error
}

func (m *mockExecutor) LookPath(file string) (string, error) {
	if m.availableBins[file] {
		return "/usr/bin/" + file, nil
	}
	return "", errors.New("not found: " + file)
}

func (m *mockExecutor) RunSilent(_ context.Context, name string, args ...string) error {
	key := name + " " + strings.Join(args, " ")
	if m.runnableCmds[key] {
		return nil
	}
	return errors.New("command failed: " + key)
}

func (m *mockExecutor) RunPiped(_ context.Context, name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if m.runPipedFunc != nil {
		return m.runPipedFunc(name, args, stdin, stdout, stderr)
	}
	return nil
}

func TestDetectRuntime(t *testing.T) {
	both := map[string]bool{"docker": true, "podman": true}
	tests := []struct {
		name      string
		exec      *mockExecutor
		preferred string
		wantName  string
		wantErr   string
	}{
		{
			name: "docker available",
			exec: &mockExecutor{
				availableBins: map[string]bool{"docker": true},
				runnableCmds:  map[string]bool{"docker info": true},
			},
			wantName: "docker",
		},
		{
			name: "podman fallback when docker missing",
			exec: &mockExecutor{
				availableBins: map[string]bool{"podman": true},
				runnableCmds:  map[string]bool{"podman info": true},
			},
			wantName: "podman",
		},
		{
			name:    "neither available",
			exec:    &mockExecutor{},
			wantErr: "no container runtime available",
		},
		{
			name: "docker on PATH but info fails",
			exec: &mockExecutor{
				availableBins: both,
				runnableCmds:  map[string]bool{"podman info": true},
			},
			wantName: "podman",
		},
		{
			name: "docker preferred by default",
			exec: &mockExecutor{
				availableBins: both,
				runnableCmds:  map[string]bool{"docker info": true, "podman info": true},
			},
			wantName: "docker",
		},
		{
			name: "podman preferred",
			exec: &mockExecutor{
				availableBins: both,
				runnableCmds:  map[string]bool{"docker info": true, "podman info": true},
			},
			preferred: "podman",
			wantName:  "podman",
		},
		{
			name:      "unknown preference",
			exec:      &mockExecutor{},
			preferred: "lxc",
			wantErr:   "unknown container runtime",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := detectRuntime(context.Background(), tt.exec, tt.preferred)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error should mention %q, got: %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rt.Name() != tt.wantName {
				t.Errorf("got runtime %q, want %q", rt.Name(), tt.wantName)
			}
		})
	}
}

func TestImageExists(t *testing.T) {
	tests := []struct {
		name    string
		bin     string
		cmds    map[string]bool
		wantErr bool
	}{
		{"docker image present", "docker", map[string]bool{"docker image inspect markitdown:latest": true}, false},
		{"docker image missing", "docker", map[string]bool{}, true},
		{"podman image present", "podman", map[string]bool{"podman image exists markitdown:latest": true}, false},
		{"podman uses exists, not inspect", "podman", map[string]bool{"podman image inspect markitdown:latest": true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := newRuntime(tt.bin, &mockExecutor{runnableCmds: tt.cmds})
			err := rt.ImageExists(context.Background(), "markitdown:latest")
			if tt.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestRun(t *testing.T) {
	var gotArgs []string
	exec := &mockExecutor{
		runPipedFunc: func(name string, args []string, stdin io.Reader, stdout, _ io.Writer) error {
			gotArgs = append([]string{name}, args...)
			data, _ := io.ReadAll(stdin)
			_, err := stdout.Write(bytes.ToUpper(data))
			return err
		},
	}
	rt := newRuntime("docker", exec)

	var out bytes.Buffer
	if err := rt.Run(context.Background(), "markitdown:latest", strings.NewReader("hello"), &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "HELLO" {
		t.Errorf("stdout = %q, want %q", out.String(), "HELLO")
	}
	want := "docker run --rm -i --network none markitdown:latest"
	if got := strings.Join(gotArgs, " "); got != want {
		t.Errorf("command = %q, want %q", got, want)
	}
}

func TestRun_IncludesStderrInError(t *testing.T) {
	exec := &mockExecutor{
		runPipedFunc: func(_ string, _ []string, _ io.Reader, _, stderr io.Writer) error {
			io.WriteString(stderr, "unsupported file format\n")
			return errors.New("exit status 1")
		},
	}
	rt := newRuntime("podman", exec)

	err := rt.Run(context.Background(), "markitdown:latest", strings.NewReader(""), io.Discard)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	for _, want := range []string{"podman", "exit status 1", "unsupported file format"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should contain %q", err, want)
		}
	}
}
