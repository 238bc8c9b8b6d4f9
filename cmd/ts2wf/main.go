// Command ts2wf lowers a curated JS/TS-like surface-language AST (JSON,
// estree-shaped) into GCP Cloud Workflows YAML.
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ts2wf/compiler/compiler"
	"github.com/ts2wf/compiler/internal/render"
	"github.com/ts2wf/compiler/surface"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "ts2wf",
	Short: "Lower a surface-language AST into GCP Cloud Workflows YAML",
	RunE:  run,
}

func init() {
	rootCmd.Version = version + " (commit=" + commit + ", built=" + date + ")"
	rootCmd.SetVersionTemplate("ts2wf version {{.Version}}\n")

	rootCmd.Flags().String("ast", "", "Path to the input AST JSON file (default stdin, env AST_FILE)")
	rootCmd.Flags().String("out", "", "Path to write the output YAML (default stdout, env OUT_FILE)")
	rootCmd.Flags().StringSlice("blocking-functions", nil, "Extra blocking functions as name=param1,param2 (repeatable, env BLOCKING_FUNCTIONS)")
	rootCmd.Flags().Bool("trace-id", false, "Stamp a random trace ID onto the compile summary log line")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	astPath := envOrDefault("AST_FILE", "")
	if v, _ := cmd.Flags().GetString("ast"); v != "" {
		astPath = v
	}

	outPath := envOrDefault("OUT_FILE", "")
	if v, _ := cmd.Flags().GetString("out"); v != "" {
		outPath = v
	}

	extraSpecs := splitEnvList(os.Getenv("BLOCKING_FUNCTIONS"))
	if v, _ := cmd.Flags().GetStringSlice("blocking-functions"); len(v) > 0 {
		extraSpecs = v
	}
	extra, err := parseBlockingFunctions(extraSpecs)
	if err != nil {
		return err
	}

	data, err := readInput(astPath)
	if err != nil {
		return fmt.Errorf("reading AST: %w", err)
	}

	prog, err := surface.DecodeProgram(data)
	if err != nil {
		return fmt.Errorf("decoding AST: %w", err)
	}

	out, cerr := compiler.Compile(prog, compiler.Options{ExtraBlocking: extra})
	if cerr != nil {
		return cerr
	}

	doc, err := render.ToYAML(out)
	if err != nil {
		return fmt.Errorf("rendering YAML: %w", err)
	}

	if traceID, _ := cmd.Flags().GetBool("trace-id"); traceID {
		log.Printf("ts2wf trace=%s subworkflows=%d bytes=%d", uuid.New().String(), len(out.Subworkflows), len(doc))
	}

	return writeOutput(outPath, doc)
}

func readInput(path string) ([]byte, error) {
	if path == "" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitEnvList(v string) []string {
	if v == "" {
		return nil
	}
	return strings.Split(v, ";")
}

// parseBlockingFunctions parses "name=param1,param2" entries into the
// extension map package internal/blocking.Registry.Extend accepts.
func parseBlockingFunctions(specs []string) (map[string][]string, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	out := make(map[string][]string, len(specs))
	for _, spec := range specs {
		name, paramList, ok := strings.Cut(spec, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --blocking-functions entry %q, want name=param1,param2", spec)
		}
		var params []string
		if paramList != "" {
			params = strings.Split(paramList, ",")
		}
		out[name] = params
	}
	return out, nil
}
