package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/plainread/plainread/internal/analyze"
	"github.com/plainread/plainread/internal/cache"
	"github.com/plainread/plainread/internal/config"
	"github.com/plainread/plainread/internal/domain"
	"github.com/plainread/plainread/internal/gateway"
	"github.com/plainread/plainread/internal/lexicon"
	"github.com/plainread/plainread/internal/orchestrator"
)

func init() {
	rootCmd.AddCommand(explainCmd)
	explainCmd.Flags().StringP("mode", "m", "balanced", "explanation mode: simple, balanced or detailed")
	explainCmd.Flags().StringP("file", "f", "", "read the text from a file instead of the argument")
	explainCmd.Flags().Bool("json", false, "print the raw JSON result")
}

var explainCmd = &cobra.Command{
	Use:   "explain [text]",
	Short: "Explain a piece of text from the command line",
	Long: `Run one explain request against the proxy without the daemon. Text
comes from the argument, --file, or stdin. Useful for trying out
prompts and for scripting.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExplain,
}

func runExplain(cmd *cobra.Command, args []string) error {
	text, err := readExplainInput(cmd, args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	modeFlag, _ := cmd.Flags().GetString("mode")
	asJSON, _ := cmd.Flags().GetBool("json")

	clientID := cfg.Proxy.ClientID
	if clientID == "" {
		clientID = "cli"
	}
	gw := gateway.NewClient(cfg.Proxy.BaseURL, clientID, cfg.Proxy.ExtensionID)
	orch := orchestrator.New(cfg.Orchestrator(), gw, cache.New(time.Hour),
		analyze.New(lexicon.Default()), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	req := domain.SelectionRequest{
		Text:   text,
		Origin: "cli",
		Mode:   domain.ParseExplanationMode(modeFlag),
	}
	resp, err := orch.Explain(ctx, req)
	if err != nil {
		return err
	}

	// Long texts defer the word list; wait for it and read the merged
	// result back from the cache.
	if resp.WordsPending {
		orch.WaitDeferred()
		if again, err := orch.Explain(ctx, req); err == nil && again.Cached {
			resp = again
		}
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp.Result)
	}

	fmt.Println(resp.Result.Explanation)
	if len(resp.Result.Vocabulary) > 0 {
		fmt.Println()
		fmt.Println("Difficult words:")
		for _, e := range resp.Result.Vocabulary {
			fmt.Printf("  %s (%s, %s): %s\n", e.Word, e.PartOfSpeech, e.Level, e.Definition)
			if e.Example != "" {
				fmt.Printf("      e.g. %s\n", e.Example)
			}
		}
	}
	if resp.Result.Notes != "" {
		fmt.Println()
		fmt.Println(resp.Result.Notes)
	}
	return nil
}

func readExplainInput(cmd *cobra.Command, args []string) (string, error) {
	file, _ := cmd.Flags().GetString("file")
	switch {
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read input file: %w", err)
		}
		return string(data), nil
	case len(args) == 1:
		return args[0], nil
	default:
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		if strings.TrimSpace(string(data)) == "" {
			return "", fmt.Errorf("no input: pass text as an argument, via --file, or on stdin")
		}
		return string(data), nil
	}
}
