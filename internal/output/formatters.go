// Package output provides output formatting utilities for the Likes CLI.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/colthorp/likes-cli-go/internal/api"
	"github.com/colthorp/likes-cli-go/internal/cache"
	"github.com/colthorp/likes-cli-go/internal/core"
)

// Placeholder for missing values.
const none = "—"

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	ruleStyle   = lipgloss.NewStyle().Faint(true)
	dateStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// Indent lines up detail lines under the text after the date column.
var detailIndent = strings.Repeat(" ", 13)

var weightLabels = map[string]string{
	"q1":      "🔴 高强度",
	"q2":      "🟠 中强度",
	"q3":      "🟢 低强度",
	"xuanxiu": "🔵 选修",
}

var typeLabels = map[string]string{
	"qingsong": "轻松跑", "xiuxi": "休息日", "e": "有氧", "lsd": "长距离",
	"m": "马拉松配速", "t": "乳酸阈", "i": "间歇", "r": "速度",
	"ft": "法特莱克", "com": "组合", "ch": "变速", "jili": "肌力",
	"max": "最大心率测试", "drift": "有氧稳定测试", "other": "其他",
}

// PrintJSON writes v as indented JSON. Non-ASCII text is written as is.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// FmtTS formats a unix timestamp as a UTC day.
func FmtTS(ts int64) string {
	if ts == 0 {
		return none
	}
	return core.UnixDate(ts)
}

// FmtDuration formats seconds as H:MM:SS, or MM:SS under an hour.
func FmtDuration(seconds int64) string {
	if seconds <= 0 {
		return none
	}
	h, rem := seconds/3600, seconds%3600
	m, s := rem/60, rem%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FmtPace formats seconds per km as M'SS".
func FmtPace(seconds int64) string {
	if seconds <= 0 {
		return none
	}
	return fmt.Sprintf("%d'%02d\"", seconds/60, seconds%60)
}

// WeightLabel returns the display label for a plan intensity.
func WeightLabel(weight string) string {
	if label, ok := weightLabels[strings.ToLower(weight)]; ok {
		return label
	}
	return weight
}

// TypeLabel returns the display label for a workout type code.
func TypeLabel(code string) string {
	if label, ok := typeLabels[code]; ok {
		return label
	}
	return code
}

func flexOr(f api.Flex) string {
	if !f.IsSet() || f.String() == "" {
		return none
	}
	return f.String()
}

func header(w io.Writer, title string) {
	fmt.Fprintln(w, headerStyle.Render(title))
	fmt.Fprintln(w, ruleStyle.Render(strings.Repeat("─", 60)))
}

// Activities prints one line per activity plus its title.
func Activities(w io.Writer, page *api.ActivityPage) {
	header(w, fmt.Sprintf("活动记录 (%d total, showing %d)", page.Total, len(page.List)))
	for _, a := range page.List {
		km, _ := a.RunKm.Float64()
		fmt.Fprintf(w, "  %s  %.1fkm  %s  配速 %s  心率 %s  步频 %s  TSS %s\n",
			dateStyle.Render(FmtTS(a.Unix())), km,
			FmtDuration(a.RunTime.Int64()), FmtPace(a.RunPace.Int64()),
			flexOr(a.AvgHR), flexOr(a.AvgCadence), flexOr(a.TSS))
		if a.Title != "" {
			fmt.Fprintf(w, "%s%s\n", detailIndent, a.Title)
		}
	}
}

// Plans prints the plan calendar with intensity and type labels.
func Plans(w io.Writer, page *api.PlanPage) {
	header(w, fmt.Sprintf("训练计划 (%d plans)", page.Total))
	for _, p := range page.Rows {
		start, title := p.Start, p.Title
		if start == "" {
			start = none
		}
		if title == "" {
			title = none
		}
		fmt.Fprintf(w, "  %s  %s  %s\n", dateStyle.Render(start), WeightLabel(p.Weight), title)
		if label := TypeLabel(p.Type); label != "" {
			fmt.Fprintf(w, "%s类型: %s\n", detailIndent, label)
		}
		if p.Name != "" {
			fmt.Fprintf(w, "%s课表: %s\n", detailIndent, p.Name)
		}
		if p.Description != "" {
			fmt.Fprintf(w, "%s备注: %s\n", detailIndent, p.Description)
		}
	}
}

// Feedback prints feedback entries, newest first as given.
func Feedback(w io.Writer, page *api.FeedbackPage) {
	header(w, fmt.Sprintf("训练反馈 (%d entries)", page.Total))
	for _, f := range page.Rows {
		content := f.Content
		if content == "" {
			content = none
		}
		fmt.Fprintf(w, "  %s  %s\n", dateStyle.Render(FmtTS(f.Unix())), f.PlanTitle)
		fmt.Fprintf(w, "%s反馈: %s\n", detailIndent, content)
		if f.Img != "" {
			fmt.Fprintf(w, "%s图片: %s\n", detailIndent, f.Img)
		}
	}
}

// PushResult prints the per-plan outcome of a push.
func PushResult(w io.Writer, r *api.PushResult) {
	fmt.Fprintf(w, "推送结果: %d ok, %d parse errors\n", r.ParseOK, r.ParseFailed)
	for _, item := range r.Results {
		status := item.Status
		if status == "" {
			status = "?"
		}
		icon := okStyle.Render("✅")
		if status != "ok" {
			icon = warnStyle.Render("⚠️")
		}
		fmt.Fprintf(w, "  %s %s [%s] %s\n", icon, item.Title, status, item.Message)
	}
}

// CacheStats prints one line per kind.
func CacheStats(w io.Writer, stats []cache.KindStats) {
	header(w, "Cache statistics")
	for _, s := range stats {
		span := "empty"
		if s.Oldest != "" {
			span = s.Oldest + " → " + s.Newest
		}
		fmt.Fprintf(w, "  %-12s  %5d records  %9s  %s\n",
			s.Kind, s.Records, humanize.IBytes(uint64(s.SizeBytes)), span)
	}
}

// BackfillChunk prints a progress line for one chunk.
func BackfillChunk(w io.Writer, c cache.ChunkReport) {
	line := fmt.Sprintf("  chunk %d: %s  %s", c.Index, c.Range, c.Result)
	switch c.Result {
	case cache.ChunkFetched:
		line += fmt.Sprintf(" (%d records)", c.Records)
	case cache.ChunkFailed:
		line = warnStyle.Render(line + ": " + c.Error)
	}
	fmt.Fprintln(w, line)
}

// BackfillReport prints the summary of a backfill.
func BackfillReport(w io.Writer, r *cache.BackfillReport, elapsed time.Duration) {
	fmt.Fprintf(w, "Backfilled %s: %s records in %d chunks (%s), stopped: %s\n",
		r.Kind, humanize.Comma(int64(r.Records)), len(r.Chunks),
		elapsed.Round(time.Millisecond), r.Stop)
	fmt.Fprintln(w, "Run 'likes cache stats' to see results.")
}
