package cmd

import (
	"github.com/spf13/cobra"

	"github.com/taharajati/habit-tracker/internal/storage/sqlstore"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long: `The "migrate" command brings a sqlite or postgres database up to the
current schema. The server also migrates on start; bolt and memory stores need
no migrations.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Storage.Driver != sqlstore.DriverSQLite && cfg.Storage.Driver != sqlstore.DriverPostgres {
			cmd.Printf("Nothing to migrate for the %s driver\n", cfg.Storage.Driver)
			return nil
		}
		st, err := openStore(cmd.Context(), cfg.Storage)
		if err != nil {
			return err
		}
		defer st.Close()

		version, err := st.(*sqlstore.Store).SchemaVersion(cmd.Context())
		if err != nil {
			return err
		}
		cmd.Printf("Schema is at version %d\n", version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
