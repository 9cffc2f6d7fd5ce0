// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package container runs short-lived extraction containers through docker or
// podman, piping a document in on stdin and reading text back on stdout.
package container

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

const (
	binDocker = "docker"
	binPodman = "podman"
)

// Runtime runs containers with a specific binary.
type Runtime interface {
	// Name returns "docker" or "podman".
	Name() string

	// Available reports whether the binary is on PATH and answers "info".
	Available(ctx context.Context) bool

	// ImageExists returns nil when the image is present locally.
	ImageExists(ctx context.Context, image string) error

	// Run starts a throwaway container from image with stdin and stdout
	// attached. The container is killed when ctx is cancelled.
	Run(ctx context.Context, image string, stdin io.Reader, stdout io.Writer) error
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	RunSilent(ctx context.Context, name string, args ...string) error
	RunPiped(ctx context.Context, name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error
}

type osExecutor struct{}

func (osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (osExecutor) RunSilent(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

func (osExecutor) RunPiped(ctx context.Context, name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// runtime is shared by docker and podman; they differ only in binary name
// and the subcommand that checks for an image.
type runtime struct {
	bin        string
	imageCheck []string
	exec       executor
}

func (r *runtime) Name() string { return r.bin }

func (r *runtime) Available(ctx context.Context) bool {
	if _, err := r.exec.LookPath(r.bin); err != nil {
		return false
	}
	return r.exec.RunSilent(ctx, r.bin, "info") == nil
}

func (r *runtime) ImageExists(ctx context.Context, image string) error {
	args := append(append([]string{}, r.imageCheck...), image)
	if err := r.exec.RunSilent(ctx, r.bin, args...); err != nil {
		return fmt.Errorf("image %s not found in %s: %w", image, r.bin, err)
	}
	return nil
}

func (r *runtime) Run(ctx context.Context, image string, stdin io.Reader, stdout io.Writer) error {
	var stderr bytes.Buffer
	args := []string{"run", "--rm", "-i", "--network", "none", image}
	if err := r.exec.RunPiped(ctx, r.bin, args, stdin, stdout, &stderr); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("running %s container %s: %w: %s", r.bin, image, err, msg)
		}
		return fmt.Errorf("running %s container %s: %w", r.bin, image, err)
	}
	return nil
}

func newRuntime(bin string, exec executor) *runtime {
	check := []string{"image", "inspect"}
	if bin == binPodman {
		check = []string{"image", "exists"}
	}
	return &runtime{bin: bin, imageCheck: check, exec: exec}
}

var defaultExec executor = osExecutor{}

// DetectRuntime returns the first operational runtime. preferred ("docker",
// "podman" or "") is tried first; otherwise docker is tried before podman.
func DetectRuntime(ctx context.Context, preferred string) (Runtime, error) {
	return detectRuntime(ctx, defaultExec, preferred)
}

func detectRuntime(ctx context.Context, exec executor, preferred string) (Runtime, error) {
	order := []string{binDocker, binPodman}
	if preferred == binPodman {
		order = []string{binPodman, binDocker}
	} else if preferred != "" && preferred != binDocker {
		return nil, fmt.Errorf("unknown container runtime %q (use %s or %s)", preferred, binDocker, binPodman)
	}

	for _, bin := range order {
		if rt := newRuntime(bin, exec); rt.Available(ctx) {
			return rt, nil
		}
	}
	return nil, fmt.Errorf(
		"no container runtime available: neither %s nor %s found or operational",
		binDocker, binPodman,
	)
}
