package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/John-Robertt/culturelog/internal/domain"
)

// maxShownPerformers 是表格中展示的出演者上限，其余折叠为 "... 외 N명"。
const maxShownPerformers = 8

// renderRecord 以两列表格展示一条记录；空字段不展示（URL 与抓取时间总是展示）。
func renderRecord(w io.Writer, rec domain.ConcertRecord) {
	fmt.Fprintf(w, "%s\n\n", text.Bold.Sprint(rec.Title))

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"항목", "내용"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 10, Colors: text.Colors{text.FgCyan}},
		{Number: 2, WidthMax: 80},
	})

	if rec.Date != "" {
		t.AppendRow(table.Row{"날짜/시간", rec.Date})
	}
	if rec.Venue != "" {
		t.AppendRow(table.Row{"공연장", rec.Venue})
	}
	if s := performersText(rec.Performers); s != "" {
		t.AppendRow(table.Row{"출연진", s})
	}
	if len(rec.Program) > 0 {
		t.AppendRow(table.Row{"프로그램", strings.Join(rec.Program, "\n")})
	}
	if len(rec.Price) > 0 {
		t.AppendRow(table.Row{"가격", strings.Join(rec.Price, "\n")})
	}
	t.AppendRow(table.Row{"URL", rec.SourceURL})
	t.AppendRow(table.Row{"수집시간", rec.ScrapedAt.Local().Format("2006-01-02 15:04:05")})
	t.Render()
}

func performersText(ps []string) string {
	if len(ps) == 0 {
		return ""
	}
	shown := ps
	if len(shown) > maxShownPerformers {
		shown = shown[:maxShownPerformers]
	}
	s := strings.Join(shown, "\n")
	if extra := len(ps) - len(shown); extra > 0 {
		s += fmt.Sprintf("\n... 외 %d명", extra)
	}
	return s
}

// renderSummary 以一行一个 URL 的表格展示批量结果。
func renderSummary(w io.Writer, rr domain.BatchReport) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "URL", "상태", "제목 / 오류"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: 60},
		{Number: 4, WidthMax: 60},
	})
	for i, it := range rr.Items {
		status := "OK"
		detail := ""
		if it.Record != nil {
			detail = it.Record.Title
		}
		if it.Status == domain.StatusFailed {
			status = text.FgRed.Sprint("FAIL")
			detail = it.ErrorCode + ": " + it.ErrorMsg
		}
		t.AppendRow(table.Row{i + 1, it.URL, status, detail})
	}
	t.AppendFooter(table.Row{"", "", "ok/failed", fmt.Sprintf("%d / %d", rr.Summary.OK, rr.Summary.Failed)})
	t.Render()
}
