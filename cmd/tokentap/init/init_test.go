package initcmder_test

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	initcmder "github.com/papercomputeco/tokentap/cmd/tokentap/init"
	"github.com/papercomputeco/tokentap/pkg/config"
)

var _ = Describe("NewInitCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Use).To(Equal("init"))
	})

	It("rejects any arguments", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Args(cmd, []string{})).To(Succeed())
		Expect(cmd.Args(cmd, []string{"extra"})).To(HaveOccurred())
	})

	It("has a --from flag", func() {
		cmd := initcmder.NewInitCmd()
		f := cmd.Flags().Lookup("from")
		Expect(f).NotTo(BeNil())
		Expect(f.DefValue).To(Equal(""))
	})
})

var _ = Describe("Init command execution", func() {
	var (
		tmpDir  string
		origDir string
		out     *bytes.Buffer
	)

	execute := func(args ...string) error {
		cmd := initcmder.NewInitCmd()
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		cmd.SetArgs(args)
		return cmd.Execute()
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = filepath.EvalSymlinks(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(tmpDir)).To(Succeed())

		out = &bytes.Buffer{}
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
	})

	It("creates a .tokentap directory with a default config", func() {
		Expect(execute()).To(Succeed())

		info, err := os.Stat(filepath.Join(tmpDir, ".tokentap"))
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())

		cfg := loadConfig(tmpDir)
		Expect(cfg).To(Equal(config.NewDefaultConfig()))
		Expect(out.String()).To(ContainSubstring("Initialized .tokentap directory"))
	})

	It("does not overwrite an existing config", func() {
		dir := filepath.Join(tmpDir, ".tokentap")
		Expect(os.MkdirAll(dir, 0o755)).To(Succeed())
		existing := "[generation]\ntemperature = 0.1\n"
		Expect(os.WriteFile(filepath.Join(dir, "config.toml"), []byte(existing), 0o600)).To(Succeed())

		Expect(execute()).To(Succeed())

		data, err := os.ReadFile(filepath.Join(dir, "config.toml"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal(existing))
		Expect(out.String()).To(ContainSubstring("Already initialized"))
	})

	Describe("--from", func() {
		It("writes the fetched config with defaults filled in", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, "[client]\nendpoint = \"https://example.com/stream\"\n\n[generation]\ntemperature = 0\n")
			}))
			defer server.Close()

			Expect(execute("--from", server.URL)).To(Succeed())

			cfg := loadConfig(tmpDir)
			Expect(cfg.Client.Endpoint).To(Equal("https://example.com/stream"))
			Expect(cfg.Generation.Temperature).To(Equal(0.0))
			Expect(cfg.Generation.MaxTokens).To(Equal(uint(2048)))
		})

		It("returns an error for a non-200 response", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			}))
			defer server.Close()

			Expect(execute("--from", server.URL)).To(MatchError(ContainSubstring("HTTP 404")))
		})

		It("returns an error for invalid TOML", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, "this is not valid toml [[[")
			}))
			defer server.Close()

			Expect(execute("--from", server.URL)).To(MatchError(ContainSubstring("parsing remote config")))
		})

		It("rejects a config that fails validation", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, "[generation]\ntemperature = 3\n")
			}))
			defer server.Close()

			Expect(execute("--from", server.URL)).To(MatchError(ContainSubstring("remote config is invalid")))
			_, err := os.Stat(filepath.Join(tmpDir, ".tokentap", "config.toml"))
			Expect(os.IsNotExist(err)).To(BeTrue())
		})

		It("returns an error for an unreachable URL", func() {
			Expect(execute("--from", "http://127.0.0.1:1")).To(MatchError(ContainSubstring("fetching remote config")))
		})
	})
})

// loadConfig reads config.toml from the .tokentap directory within baseDir.
func loadConfig(baseDir string) *config.Config {
	cfger, err := config.NewConfiger(filepath.Join(baseDir, ".tokentap"))
	ExpectWithOffset(1, err).NotTo(HaveOccurred())

	cfg, err := cfger.LoadConfig()
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	return cfg
}
