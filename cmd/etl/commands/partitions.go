package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Kamal2131/stock-etl-airflow/internal/lake"
)

var partitionsLayer string

// partitionsCmd lists stored lake partitions
var partitionsCmd = &cobra.Command{
	Use:   "partitions",
	Short: "List data lake partitions",
	Long: `Lists every stored partition for the configured underlyings and
the equity universe.

Example:
  go run ./cmd/etl partitions
  go run ./cmd/etl partitions --layer raw`,
	RunE: listPartitions,
}

func init() {
	rootCmd.AddCommand(partitionsCmd)
	partitionsCmd.Flags().StringVar(&partitionsLayer, "layer", "", "restrict to one layer (raw|processed)")
}

func listPartitions(cmd *cobra.Command, args []string) error {
	a, err := initApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	layers := []lake.Layer{lake.LayerRaw, lake.LayerProcessed}
	switch partitionsLayer {
	case "":
	case "raw":
		layers = []lake.Layer{lake.LayerRaw}
	case "processed":
		layers = []lake.Layer{lake.LayerProcessed}
	default:
		return fmt.Errorf("unknown layer %q, expected raw or processed", partitionsLayer)
	}

	scopes := make([]lake.Scope, 0, len(a.config.ETL.Underlyings)+1)
	for _, underlying := range a.config.ETL.Underlyings {
		scopes = append(scopes, lake.FNOScope(underlying))
	}
	scopes = append(scopes, lake.EquityScope("nifty500"))

	var total int
	for _, scope := range scopes {
		for _, layer := range layers {
			partitions, err := a.store.ListPartitions(scope, layer)
			if err != nil {
				return err
			}
			if len(partitions) == 0 {
				continue
			}

			fmt.Printf("\n%s/%s (%s): %d partitions\n",
				scope.Domain, layer, scope.Key, len(partitions))
			for _, p := range partitions {
				fmt.Printf("  %s  %8d bytes  %s\n", p.Date.Format("2006-01-02"), p.Size, p.Path)
			}
			total += len(partitions)
		}
	}

	if total == 0 {
		fmt.Println("No partitions found")
	} else {
		fmt.Printf("\nTotal: %d partitions\n", total)
	}
	return nil
}
