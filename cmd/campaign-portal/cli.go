package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dzerik/campaign-portal/internal/help"
	"github.com/dzerik/campaign-portal/internal/schema"
	"github.com/dzerik/campaign-portal/internal/service/crypto"
)

// cliOptions holds parsed CLI options.
type cliOptions struct {
	configPath   string
	envFiles     []string
	devMode      bool
	showVersion  bool
	showHelp     bool
	genSchema    bool
	schemaOutput string
	genKey       bool
	printConfig  bool
}

// parseFlags parses CLI flags and returns options.
func parseFlags() *cliOptions {
	opts := &cliOptions{}

	flag.StringVar(&opts.configPath, "config", getEnv("CAMPAIGN_PORTAL_CONFIG", ""), "Path to configuration file (optional)")
	flag.Func("env-file", "Dotenv file to load, repeatable (default: .env)", func(s string) error {
		opts.envFiles = append(opts.envFiles, s)
		return nil
	})
	flag.BoolVar(&opts.devMode, "dev", false, "Enable development mode")
	flag.BoolVar(&opts.showVersion, "version", false, "Show version and exit")
	flag.BoolVar(&opts.showHelp, "help", false, "Show extended help")
	flag.BoolVar(&opts.genSchema, "schema", false, "Generate JSON schema and exit")
	flag.StringVar(&opts.schemaOutput, "schema-output", "", "Output file for schema (default: stdout)")
	flag.BoolVar(&opts.genKey, "generate-key", false, "Print a random recovery encryption key and exit")
	flag.BoolVar(&opts.printConfig, "print-config", false, "Print the effective configuration with secrets masked and exit")
	flag.Parse()

	return opts
}

// handleInfoCommands handles --version, --help, --schema and --generate-key.
// Returns true if command was handled and program should exit.
func handleInfoCommands(opts *cliOptions) bool {
	helpGen := help.NewGenerator(help.AppInfo{
		Name:        "campaign-portal",
		Description: "Marketing campaign portal with OAuth callback redirect recovery",
		Version:     Version,
		BuildTime:   BuildTime,
		DocsURL:     "https://github.com/dzerik/campaign-portal",
	}, "CAMPAIGN_PORTAL")

	switch {
	case opts.showVersion:
		fmt.Print(helpGen.PrintVersion())
	case opts.showHelp:
		fmt.Print(helpGen.PrintExtendedHelp())
	case opts.genSchema:
		handleSchemaGeneration(opts.schemaOutput)
	case opts.genKey:
		handleKeyGeneration()
	default:
		return false
	}
	return true
}

// handleSchemaGeneration generates JSON schema and exits.
func handleSchemaGeneration(outputPath string) {
	gen := schema.NewGenerator()
	data, err := gen.Generate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate schema: %v\n", err)
		os.Exit(1)
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Schema written to %s\n", outputPath)
	} else {
		fmt.Println(string(data))
	}
}

func handleKeyGeneration() {
	key, err := crypto.GenerateKeyString()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	fmt.Println(key)
}
