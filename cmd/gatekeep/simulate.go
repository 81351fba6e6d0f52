package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/dshills/gatekeep/internal/app"
	"github.com/dshills/gatekeep/internal/config"
	"github.com/dshills/gatekeep/internal/event"
)

var simulateUsers int

func init() {
	RootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().IntVarP(&simulateUsers, "users", "u", 3, "Number of simulated users (at least 2)")
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a scripted session against an in-memory store and print bus statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateUsers < 2 {
			return fmt.Errorf("--users must be at least 2, got %d", simulateUsers)
		}

		opts := appOptions()
		if opts.LogLevel == "" && !opts.Debug {
			opts.LogLevel = "warn"
		}
		opts.Configure = func(cfg *config.Config) {
			cfg.Store.Driver = "memory"
			cfg.Store.DSN = ""
			cfg.Bus.Async = false
		}

		application, err := app.New(opts)
		if err != nil {
			return err
		}
		defer func() { _ = application.Shutdown(context.Background()) }()

		report, err := simulate(cmd.Context(), application, simulateUsers)
		if err != nil {
			return err
		}
		return writeReport(cmd.OutOrStdout(), report)
	},
}

// SimulationReport summarizes a simulated session.
type SimulationReport struct {
	Users           int               `json:"users" yaml:"users"`
	TotalPublished  uint64            `json:"totalPublished" yaml:"totalPublished"`
	TotalProcessed  uint64            `json:"totalProcessed" yaml:"totalProcessed"`
	TotalErrors     uint64            `json:"totalErrors" yaml:"totalErrors"`
	SubscriberCount int               `json:"subscriberCount" yaml:"subscriberCount"`
	WildcardCount   int               `json:"wildcardCount" yaml:"wildcardCount"`
	PublishedByName map[string]uint64 `json:"publishedByName" yaml:"publishedByName"`
}

// simulate registers n users, logs them in, builds a contact ring, blocks
// one contact, fails one login, resets one password and logs everyone out.
func simulate(ctx context.Context, a *app.Application, n int) (*SimulationReport, error) {
	const password = "simulated-password"

	ids := make([]string, n)
	tokens := make([]string, n)
	for i := range n {
		email := fmt.Sprintf("user%d@example.com", i)
		u, err := a.Auth().Register(ctx, email, password, fmt.Sprintf("User %d", i))
		if err != nil {
			return nil, fmt.Errorf("register %s: %w", email, err)
		}
		ids[i] = u.ID

		res, err := a.Auth().Login(ctx, email, password)
		if err != nil {
			return nil, fmt.Errorf("login %s: %w", email, err)
		}
		tokens[i] = res.Token

		if _, err := a.Profile().Update(ctx, u.ID, u.DisplayName, "Simulated user "+strconv.Itoa(i)); err != nil {
			return nil, fmt.Errorf("profile %s: %w", email, err)
		}
	}

	for i := range n {
		next := ids[(i+1)%n]
		if _, err := a.Contacts().Add(ctx, ids[i], next); err != nil {
			return nil, fmt.Errorf("add contact: %w", err)
		}
	}
	if err := a.Contacts().Block(ctx, ids[0], ids[1]); err != nil {
		return nil, fmt.Errorf("block contact: %w", err)
	}

	// Expected to fail; the failure is published.
	_, _ = a.Auth().Login(ctx, "user0@example.com", "wrong-password")

	token, err := a.Auth().RequestPasswordReset(ctx, "user0@example.com")
	if err != nil {
		return nil, fmt.Errorf("request reset: %w", err)
	}
	if err := a.Auth().ResetPassword(ctx, token, password+"-2"); err != nil {
		return nil, fmt.Errorf("reset password: %w", err)
	}

	// The reset revoked user0's session.
	for _, tok := range tokens[1:] {
		if err := a.Auth().Logout(ctx, tok); err != nil {
			return nil, fmt.Errorf("logout: %w", err)
		}
	}

	if err := a.Bus().Drain(ctx); err != nil {
		return nil, err
	}
	return newReport(n, a.Bus().Stats()), nil
}

func newReport(users int, s event.Stats) *SimulationReport {
	return &SimulationReport{
		Users:           users,
		TotalPublished:  s.TotalPublished,
		TotalProcessed:  s.TotalProcessed,
		TotalErrors:     s.TotalErrors,
		SubscriberCount: s.SubscriberCount,
		WildcardCount:   s.WildcardCount,
		PublishedByName: s.PublishedByName,
	}
}

func writeReport(w io.Writer, r *SimulationReport) error {
	if OutputFormat != FormatTable {
		return writeStructured(w, r)
	}

	names := make([]string, 0, len(r.PublishedByName))
	for name := range r.PublishedByName {
		names = append(names, name)
	}
	slices.Sort(names)

	byName := tablewriter.NewWriter(w)
	byName.SetHeader([]string{"Event", "Published"})
	for _, name := range names {
		byName.Append([]string{name, strconv.FormatUint(r.PublishedByName[name], 10)})
	}
	byName.Render()

	totals := tablewriter.NewWriter(w)
	totals.SetHeader([]string{"Users", "Published", "Processed", "Errors", "Subscribers", "Wildcards"})
	totals.Append([]string{
		strconv.Itoa(r.Users),
		strconv.FormatUint(r.TotalPublished, 10),
		strconv.FormatUint(r.TotalProcessed, 10),
		strconv.FormatUint(r.TotalErrors, 10),
		strconv.Itoa(r.SubscriberCount),
		strconv.Itoa(r.WildcardCount),
	})
	totals.Render()
	return nil
}
