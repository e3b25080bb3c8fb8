package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/arbwatch/internal/adapters/storage"
)

// printHistory lista las alertas journaleadas dentro de la ventana dada.
func printHistory(ctx context.Context, dsn string, window time.Duration) error {
	if dsn == "" {
		return errors.New("alert journal disabled (storage.dsn is empty)")
	}

	st, err := storage.NewSQLiteStorage(dsn)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer st.Close()

	to := time.Now().UTC()
	opps, err := st.GetHistory(ctx, to.Add(-window), to)
	if err != nil {
		return fmt.Errorf("query journal: %w", err)
	}

	if len(opps) == 0 {
		fmt.Printf("no alerts in the last %s\n", window)
		return nil
	}
	fmt.Printf("%d alerts in the last %s\n", len(opps), window)

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Detected (UTC)", "Pair", "Assignment", "Cost", "Edge c", "Deploy $", "Days")
	for _, o := range opps {
		days := "-"
		if o.DaysToExpiry >= 0 {
			days = fmt.Sprintf("%.1f", o.DaysToExpiry)
		}
		table.Append(
			o.DetectedAt.UTC().Format("2006-01-02 15:04:05"),
			o.PairName,
			o.Assignment,
			fmt.Sprintf("%.4f", o.SumCost),
			fmt.Sprintf("%.2f", o.EdgeCents),
			fmt.Sprintf("$%.2f", o.DeployableUSD),
			days,
		)
	}
	table.Render()
	return nil
}
