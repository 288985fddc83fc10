package slack_test

import (
	"testing"

	slacklib "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/taskflow/internal/messenger"
	tfslack "github.com/gosuda/taskflow/internal/messenger/slack"
)

func TestBuildNoticeBlocks(t *testing.T) {
	t.Parallel()

	t.Run("title and body", func(t *testing.T) {
		t.Parallel()

		blocks := tfslack.BuildNoticeBlocks(messenger.Notice{Title: "Review requested", Text: "ship the parser"})
		require.Len(t, blocks, 2)

		section, ok := blocks[0].(*slacklib.SectionBlock)
		require.True(t, ok, "first block should be a SectionBlock")
		assert.Equal(t, slacklib.MBTSection, section.Type)
		require.NotNil(t, section.Text)
		assert.Equal(t, "*Review requested*", section.Text.Text)

		ctxBlock, ok := blocks[1].(*slacklib.ContextBlock)
		require.True(t, ok, "second block should be a ContextBlock")
		require.Len(t, ctxBlock.ContextElements.Elements, 1)
	})

	t.Run("title only", func(t *testing.T) {
		t.Parallel()

		blocks := tfslack.BuildNoticeBlocks(messenger.Notice{Title: "Task approved"})
		require.Len(t, blocks, 1)
	})
}
