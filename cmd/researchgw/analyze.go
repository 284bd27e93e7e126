package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	researchgw "github.com/finsight-labs/research-gateway"
	"github.com/finsight-labs/research-gateway/confidence"
	"github.com/finsight-labs/research-gateway/internal/history"
	"github.com/finsight-labs/research-gateway/internal/logging"
	"github.com/finsight-labs/research-gateway/marketdata"
	"github.com/finsight-labs/research-gateway/providers"
)

// Domain factor weights for the analyze command. Together with the
// engine's transport factors they sum to 1.0.
const (
	completenessWeight = 0.35
	accuracyWeight     = 0.25
)

func newAnalyzeCmd() *cobra.Command {
	var (
		configPath string
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "analyze <symbol>",
		Short: "Fetch a quote and run an LLM analysis with confidence scoring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := marketdata.NormalizeSymbol(args[0])
			if err := marketdata.ValidateSymbol(symbol); err != nil {
				return err
			}

			cfg, err := loadOrDefaultConfig(configPath)
			if err != nil {
				return err
			}
			registry, err := registerFromEnv(cmd.Context(), *cfg)
			if err != nil {
				return err
			}
			if len(cfg.Providers) == 0 {
				for i, name := range registry.List() {
					cfg.Providers = append(cfg.Providers, researchgw.ProviderTarget{ID: name, Priority: i + 1})
				}
			}

			eng, err := researchgw.New(*cfg, registry)
			if err != nil {
				return err
			}
			defer eng.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			ctx = logging.WithTraceID(ctx, logging.NewTraceID())

			return runAnalysis(ctx, eng, symbol, os.Stdout)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (JSON/YAML)")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall deadline for the analysis")
	return cmd
}

// analysisReport is the envelope printed by the analyze command.
type analysisReport struct {
	Symbol     string             `json:"symbol"`
	Quote      *marketdata.Quote  `json:"quote"`
	QuoteCache bool               `json:"quote_cached"`
	Analysis   string             `json:"analysis"`
	Provider   string             `json:"provider"`
	Attempts   int                `json:"attempts"`
	Confidence *confidence.Result `json:"confidence"`
	HistoryID  string             `json:"history_id,omitempty"`
}

func runAnalysis(ctx context.Context, eng *researchgw.Engine, symbol string, out *os.File) error {
	quotes := marketdata.NewClient("")
	ttl := marketdata.QuoteTTL(time.Now())

	quoteRes, err := eng.Fetch(ctx, "marketdata", "quote:"+symbol, ttl, func(ctx context.Context) (any, error) {
		return quotes.Quote(ctx, symbol)
	})
	if err != nil {
		return fmt.Errorf("fetching quote for %s: %w", symbol, err)
	}
	quote := quoteRes.Value.(*marketdata.Quote)

	req := providers.Request{
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: "You are an equity research analyst. Be factual and concise."},
			{Role: providers.RoleUser, Content: fmt.Sprintf(
				"Analyze %s: price %.2f %s, previous close %.2f (%.2f%%). Summarize the short-term outlook.",
				quote.Symbol, quote.Price, quote.Currency, quote.PreviousClose, quote.Change())},
		},
	}

	res, err := eng.Complete(ctx, req, quoteRes.Signals(),
		confidence.Factor{Name: "data_completeness", Weight: completenessWeight, Score: completenessScore(quote)},
		confidence.Factor{Name: "historical_accuracy", Weight: accuracyWeight, Score: accuracyScore(ctx, eng.History(), symbol)},
	)
	if err != nil {
		return err
	}
	resp := res.Value.(*providers.Response)

	report := analysisReport{
		Symbol:     symbol,
		Quote:      quote,
		QuoteCache: quoteRes.Cached,
		Analysis:   resp.Content,
		Provider:   res.Provider,
		Attempts:   res.Attempts,
		Confidence: res.Confidence,
	}

	if hist := eng.History(); hist != nil {
		id, err := hist.Record(ctx, symbol, res.Provider, string(res.Confidence.Level), res.Confidence.Overall, report)
		if err != nil {
			logging.FromContext(ctx).Warn("history record failed", "error", err)
		} else {
			report.HistoryID = id
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// completenessScore grades how many quote fields came back populated.
func completenessScore(q *marketdata.Quote) float64 {
	fields := 0
	if q.Price > 0 {
		fields++
	}
	if q.PreviousClose > 0 {
		fields++
	}
	if q.Currency != "" {
		fields++
	}
	if !q.MarketTime.IsZero() {
		fields++
	}
	return float64(fields) / 4
}

// accuracyScore looks up the symbol's scored prediction history, falling
// back to the neutral prior when history is disabled or unavailable.
func accuracyScore(ctx context.Context, hist *history.Store, symbol string) float64 {
	if hist == nil {
		return history.DefaultAccuracy
	}
	acc, err := hist.Accuracy(ctx, symbol)
	if err != nil {
		logging.FromContext(ctx).Warn("accuracy lookup failed", "symbol", symbol, "error", err)
		return history.DefaultAccuracy
	}
	return acc
}
