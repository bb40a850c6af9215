package main

import (
	"os"

	"github.com/Kamal2131/stock-etl-airflow/cmd/etl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
