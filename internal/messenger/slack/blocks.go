package slack

import (
	"fmt"

	slacklib "github.com/slack-go/slack"

	"github.com/gosuda/taskflow/internal/messenger"
)

// BuildNoticeBlocks builds Slack Block Kit blocks for a notice: a bold
// title line followed by the body. An empty body yields a single block.
func BuildNoticeBlocks(notice messenger.Notice) []slacklib.Block {
	header := slacklib.NewSectionBlock(
		slacklib.NewTextBlockObject(slacklib.MarkdownType, fmt.Sprintf("*%s*", notice.Title), false, false),
		nil,
		nil,
	)
	if notice.Text == "" {
		return []slacklib.Block{header}
	}

	body := slacklib.NewContextBlock("",
		slacklib.NewTextBlockObject(slacklib.MarkdownType, notice.Text, false, false),
	)

	return []slacklib.Block{header, body}
}
