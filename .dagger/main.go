// Tokentap CI/CD
//
// Package main provides reproducible builds, tests and releases for tokentap,
// locally and in GitHub actions.
package main

import (
	"context"

	"dagger/tokentap/internal/dagger"
)

// Tokentap is the main module for the tokentap CI/CD pipeline
type Tokentap struct {
	// Project source directory
	//
	// +private
	Source *dagger.Directory
}

// New creates a new Tokentap CI/CD module instance
func New(
	// Project source directory.
	//
	// +defaultPath="/"
	// +ignore=[".git", ".direnv", ".devenv", ".tokentap", "build", "tmp"]
	source *dagger.Directory,
) *Tokentap {
	return &Tokentap{
		Source: source,
	}
}

// goContainer returns an alpine Go container with the module caches and
// project source mounted. tokentap is pure Go so CGO stays disabled.
func (t *Tokentap) goContainer() *dagger.Container {
	return dag.Container().
		From("golang:1.25-alpine").
		WithEnvVariable("CGO_ENABLED", "0").
		WithEnvVariable("PATH", "/go/bin:$PATH", dagger.ContainerWithEnvVariableOpts{Expand: true}).
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("go-build")).
		WithWorkdir("/src").
		WithDirectory("/src", t.Source)
}

// Test runs the unit tests with the race detector via "go test"
func (t *Tokentap) Test(ctx context.Context) (string, error) {
	return t.goContainer().
		WithEnvVariable("CGO_ENABLED", "1").
		WithExec([]string{"apk", "add", "--no-cache", "gcc", "musl-dev"}).
		WithExec([]string{"go", "test", "-race", "./..."}).
		Stdout(ctx)
}
