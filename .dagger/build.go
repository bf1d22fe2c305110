package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dagger/tokentap/internal/dagger"
)

const versionPkg = "github.com/papercomputeco/tokentap/pkg/utils"

// Build and return directory of tokentap binaries for every supported platform
func (t *Tokentap) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	platforms := []struct{ goos, goarch string }{
		{"linux", "amd64"},
		{"linux", "arm64"},
		{"darwin", "amd64"},
		{"darwin", "arm64"},
	}

	outputs := dag.Directory()
	golang := t.goContainer()

	for _, p := range platforms {
		path := fmt.Sprintf("%s/%s/", p.goos, p.goarch)

		build := golang.
			WithEnvVariable("GOOS", p.goos).
			WithEnvVariable("GOARCH", p.goarch).
			WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", path + "tokentap", "./cli/tokentap"})

		outputs = outputs.WithDirectory(path, build.Directory(path))
	}

	return outputs
}

// BuildRelease compiles versioned release binaries with embedded version info
func (t *Tokentap) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.Directory {
	ldflags := []string{
		"-s",
		"-w",
		fmt.Sprintf("-X '%s.Version=%s'", versionPkg, version),
		fmt.Sprintf("-X '%s.Sha=%s'", versionPkg, commit),
		fmt.Sprintf("-X '%s.Buildtime=%s'", versionPkg, time.Now().UTC().Format(time.RFC3339)),
	}

	return t.Build(ctx, strings.Join(ldflags, " "))
}
