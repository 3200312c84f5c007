package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/installments-tracker/internal/entity"
	"github.com/joseph-ayodele/installments-tracker/internal/profile"
	profilesvc "github.com/joseph-ayodele/installments-tracker/internal/services/profile"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Manage persisted parsing profiles",
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List built-in and persisted profiles",
	Args:  cobra.NoArgs,
	RunE: withStore(func(a *app, cmd *cobra.Command, _ []string) error {
		stored, err := a.profiles.ListProfiles(cmd.Context())
		if err != nil {
			return err
		}
		type row struct {
			Key      string   `json:"key"`
			Builtin  bool     `json:"builtin"`
			Stored   bool     `json:"stored"`
			Keywords []string `json:"keywords,omitempty"`
		}
		byKey := make(map[string]entity.ParsingProfile, len(stored))
		for _, p := range stored {
			byKey[p.Key] = p
		}
		rows := make([]row, 0, len(a.registry.IDs()))
		for _, id := range a.registry.IDs() {
			p, _ := a.registry.Get(id)
			_, saved := byKey[string(id)]
			rows = append(rows, row{Key: string(id), Builtin: id.IsBuiltin(), Stored: saved, Keywords: p.Keywords})
		}
		return printJSON(rows)
	}),
}

var profilesImportCmd = &cobra.Command{
	Use:   "import <file.yaml|file.json>",
	Short: "Validate a profile document and save every profile in it",
	Args:  cobra.ExactArgs(1),
	RunE: withStore(func(a *app, cmd *cobra.Command, args []string) error {
		saved, err := a.profiles.ImportFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(saved)
	}),
}

var profilesDeleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Delete a persisted profile; built-ins fall back to their shipped patterns",
	Args:  cobra.ExactArgs(1),
	RunE: withStore(func(a *app, cmd *cobra.Command, args []string) error {
		return a.profiles.DeleteProfile(cmd.Context(), args[0])
	}),
}

var profilesSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Persist the built-in profiles so they can be edited",
	Args:  cobra.NoArgs,
	RunE: withStore(func(a *app, cmd *cobra.Command, _ []string) error {
		for _, id := range a.registry.IDs() {
			if !id.IsBuiltin() {
				continue
			}
			p, _ := profile.Builtin(id)
			rec := profile.ToRecord(p)
			if _, err := a.profiles.SaveProfile(cmd.Context(), profilesvc.SaveProfileRequest{
				Key:              rec.Key,
				Description:      rec.Description,
				Keywords:         rec.Keywords,
				SeqPattern:       rec.SeqPattern,
				DatePattern:      rec.DatePattern,
				AmountPattern:    rec.AmountPattern,
				TributoPattern:   rec.TributoPattern,
				AnnoPattern:      rec.AnnoPattern,
				DebitoPattern:    rec.DebitoPattern,
				InteressiPattern: rec.InteressiPattern,
			}); err != nil {
				return fmt.Errorf("seed %s: %w", id, err)
			}
		}
		return nil
	}),
}

func init() {
	profilesCmd.AddCommand(profilesListCmd, profilesImportCmd, profilesDeleteCmd, profilesSeedCmd)
	rootCmd.AddCommand(profilesCmd)
}

// withStore runs fn with an app whose profile store is open; unlike
// extract, a store failure is fatal here.
func withStore(fn func(a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.withProfiles(cmd.Context()); err != nil {
			return err
		}
		return fn(a, cmd, args)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
