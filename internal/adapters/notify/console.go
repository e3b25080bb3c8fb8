package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/arbwatch/internal/domain"
)

// Console implementa ports.Notifier imprimiendo las alertas a stdout.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador de consola. Con table=true imprime la
// tabla completa con las patas de cada hedge; si no, una línea por alerta.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Notify imprime las oportunidades del ciclo.
func (c *Console) Notify(_ context.Context, opportunities []domain.Opportunity) error {
	if len(opportunities) == 0 {
		return nil
	}
	if c.table {
		c.printTable(opportunities)
	} else {
		c.printCompact(opportunities)
	}
	return nil
}

// printCompact imprime una línea por alerta.
func (c *Console) printCompact(opps []domain.Opportunity) {
	now := time.Now().Format("15:04:05")
	for _, o := range opps {
		fmt.Fprintf(c.out, "[%s] ARB %s\n", now, o.Headline())
	}
}

// printTable imprime la tabla completa del ciclo.
func (c *Console) printTable(opps []domain.Opportunity) {
	now := time.Now().Format("15:04:05")
	fmt.Fprintf(c.out, "\n[%s] %d arbitrage alerts\n", now, len(opps))

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Pair", "Assignment", "Cost", "Edge c", "Deploy $", "Days", "Legs")

	for i, o := range opps {
		days := "-"
		if o.DaysToExpiry >= 0 {
			days = fmt.Sprintf("%.1f", o.DaysToExpiry)
		}
		table.Append(
			fmt.Sprintf("%d", i+1),
			o.PairName,
			o.Assignment,
			fmt.Sprintf("%.4f", o.SumCost),
			fmt.Sprintf("%.2f", o.EdgeCents),
			fmt.Sprintf("$%.2f", o.DeployableUSD),
			days,
			legsLabel(o.Legs),
		)
	}
	table.Render()

	fmt.Fprintln(c.out, "  Cost = suma de asks | Edge = (1-cost)×100 | Deploy = notional de la pata más fina")
}

// legsLabel resume las compras: venue:outcome@precio×tamaño.
func legsLabel(legs []domain.HedgeLeg) string {
	parts := make([]string, len(legs))
	for i, l := range legs {
		parts[i] = fmt.Sprintf("%s:%s@%.3f×%.0f", l.Venue.Code(), l.Outcome, l.AskPrice, l.AskSize)
	}
	return strings.Join(parts, " + ")
}
