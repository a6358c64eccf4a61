// Package outwriter renders store and queue status for the CLI.
package outwriter

import (
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"golang.org/x/term"

	"github.com/civilsoul/offlined/schema"
)

// fallbackWidth is used when stdout is not a terminal.
const fallbackWidth = 80

// maximum width of a partition name when rendered as table.
const maxTableNameWidth = 40

// TerminalWidth returns the detected terminal width.
func TerminalWidth() int {
	detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || detectedWidth <= 0 {
		return fallbackWidth
	}
	return detectedWidth
}

// PrintCacheStatus prints cache status information with a per-partition table.
func PrintCacheStatus(status schema.CacheStatus) {
	fmt.Printf("Store Backend: %s\n", status.Backend)
	fmt.Printf("Connected: %s\n", connectedLabel(status.Connected))
	if !status.Connected {
		return
	}
	fmt.Printf("Total Entries: %d\n", status.TotalEntries)
	if status.TotalEntries > 0 {
		fmt.Printf("Last Entry: %s\n", status.LastEntryTime.Format("2006-01-02 15:04:05"))
		fmt.Printf("Oldest Entry: %s\n", status.OldestEntryTime.Format("2006-01-02 15:04:05"))
	}
	if status.TableSizeBytes > 0 {
		fmt.Printf("Table Size: %d bytes\n", status.TableSizeBytes)
	}
	if len(status.Partitions) == 0 {
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header([]string{"Partition", "Entries"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, name := range sortedKeys(status.Partitions) {
		data = append(data, []string{
			truncateName(name, maxTableNameWidth),
			fmt.Sprintf("%d", status.Partitions[name]),
		})
	}
	if err := table.Bulk(data); err != nil {
		fmt.Fprintf(os.Stderr, "Error rendering partition table: %v\n", err)
		return
	}
	_ = table.Render()
}

// PrintQueueStatus prints mutation queue status with a per-category table.
func PrintQueueStatus(status schema.QueueStatus) {
	fmt.Printf("Store Backend: %s\n", status.Backend)
	fmt.Printf("Connected: %s\n", connectedLabel(status.Connected))
	if !status.Connected {
		return
	}
	if !status.OldestItem.IsZero() {
		fmt.Printf("Oldest Item: %s\n", status.OldestItem.Format("2006-01-02 15:04:05"))
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header([]string{"Category", "Pending", "Dead"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, category := range schema.AllCategories {
		data = append(data, []string{
			string(category),
			fmt.Sprintf("%d", status.Counts[category]),
			fmt.Sprintf("%d", status.DeadCounts[category]),
		})
	}
	if err := table.Bulk(data); err != nil {
		fmt.Fprintf(os.Stderr, "Error rendering queue table: %v\n", err)
		return
	}
	_ = table.Render()
}

// PrintDrainResults prints the outcome of a drain cycle per category.
func PrintDrainResults(results []schema.DrainResult) {
	for _, res := range results {
		state := color.GreenString("ok")
		if res.Failed {
			state = color.RedString("failed")
		}
		fmt.Printf("%s: %d replayed, %d buried [%s]\n", res.Category, res.Replayed, res.Buried, state)
	}
}

func connectedLabel(connected bool) string {
	if connected {
		return color.GreenString("true")
	}
	return color.RedString("false")
}

func truncateName(name string, width int) string {
	if len(name) <= width {
		return name
	}
	return "..." + name[len(name)-width+3:]
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
