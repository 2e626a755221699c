package digest

import (
	"fmt"
	"html"
	"strings"
	"time"
)

var weekdaysKO = [...]string{"일", "월", "화", "수", "목", "금", "토"}

// SlackText is a Block Kit text object.
type SlackText struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

type SlackButton struct {
	Type  string    `json:"type"`
	Text  SlackText `json:"text"`
	URL   string    `json:"url"`
	Style string    `json:"style,omitempty"`
}

type SlackBlock struct {
	Type      string       `json:"type"`
	Text      *SlackText   `json:"text,omitempty"`
	Accessory *SlackButton `json:"accessory,omitempty"`
	Elements  []SlackText  `json:"elements,omitempty"`
}

// SlackMessage is the webhook payload.
type SlackMessage struct {
	Blocks []SlackBlock `json:"blocks"`
}

func title(t time.Time) string {
	return fmt.Sprintf("📊 [%s %s] PUBGM 일일 트래픽 리포트", t.Format("06.01.02"), weekdaysKO[t.Weekday()])
}

func mrkdwn(s string) *SlackText {
	return &SlackText{Type: "mrkdwn", Text: s}
}

// Slack renders the report as Block Kit. The dashboard button is omitted
// when dashboardURL is empty.
func Slack(r Report, dashboardURL string) SlackMessage {
	greeting := SlackBlock{Type: "section", Text: mrkdwn("안녕하세요! 일일 리포트 전달드립니다.")}
	if dashboardURL != "" {
		greeting.Accessory = &SlackButton{
			Type:  "button",
			Text:  SlackText{Type: "plain_text", Text: "📊 대시보드", Emoji: true},
			URL:   dashboardURL,
			Style: "primary",
		}
	}

	blocks := []SlackBlock{
		{Type: "header", Text: &SlackText{Type: "plain_text", Text: title(r.Date), Emoji: true}},
		greeting,
		{Type: "divider"},
		{Type: "section", Text: mrkdwn(fmt.Sprintf(
			"*📈 24시간 뉴스 수집 현황*\n• ⚡ 트래픽 영향: *%d건* 수집 → 주요 이슈 *%d건*\n• 🎮 게임 뉴스: *%d건*",
			r.TrafficTotal, len(r.Entries), r.GamingTotal))},
		{Type: "divider"},
		{Type: "section", Text: mrkdwn("*🥽 분석 의견*\n" + r.Summary)},
	}

	if len(r.Countries) > 0 {
		blocks = append(blocks, SlackBlock{
			Type:     "context",
			Elements: []SlackText{*mrkdwn("🌍 *주요 영향 국가:* " + strings.Join(r.Countries, ", "))},
		})
	}
	return SlackMessage{Blocks: blocks}
}

// Telegram renders the report as HTML for parse_mode=HTML.
func Telegram(r Report, dashboardURL string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>%s</b>\n\n", html.EscapeString(title(r.Date)))
	fmt.Fprintf(&sb, "⚡ 트래픽 영향: <b>%d건</b> 수집 → 주요 이슈 <b>%d건</b>\n", r.TrafficTotal, len(r.Entries))
	fmt.Fprintf(&sb, "🎮 게임 뉴스: <b>%d건</b>\n\n", r.GamingTotal)
	sb.WriteString(slackBoldToHTML(html.EscapeString(r.Summary)))
	sb.WriteString("\n")

	for i, e := range r.Entries {
		if i == summaryItems {
			break
		}
		mark := "🟠"
		if e.Level == LevelHigh {
			mark = "🔴"
		}
		line := html.EscapeString(e.Item.Title)
		if e.Item.URL != "" {
			line = fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(e.Item.URL), line)
		}
		if e.Item.Country != "" {
			line = "[" + html.EscapeString(e.Item.Country) + "] " + line
		}
		if i == 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%s %s\n", mark, line)
	}

	if len(r.Countries) > 0 {
		fmt.Fprintf(&sb, "\n🌍 <b>주요 영향 국가:</b> %s\n", html.EscapeString(strings.Join(r.Countries, ", ")))
	}
	if dashboardURL != "" {
		fmt.Fprintf(&sb, "\n<a href=\"%s\">📊 대시보드</a>", html.EscapeString(dashboardURL))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// slackBoldToHTML turns *x* spans into <b>x</b>.
func slackBoldToHTML(s string) string {
	parts := strings.Split(s, "*")
	if len(parts) < 3 {
		return s
	}
	var sb strings.Builder
	for i, p := range parts {
		if i > 0 {
			// An unpaired trailing asterisk stays literal.
			if i == len(parts)-1 && i%2 == 1 {
				sb.WriteString("*")
			} else if i%2 == 1 {
				sb.WriteString("<b>")
			} else {
				sb.WriteString("</b>")
			}
		}
		sb.WriteString(p)
	}
	return sb.String()
}
