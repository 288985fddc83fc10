package workflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/taskflow/internal/domain"
	"github.com/gosuda/taskflow/internal/workflow"
)

func lastEvent(t *testing.T, f *fixture, task *domain.Task) *domain.TaskEvent {
	t.Helper()

	events := f.events(t, task.ID)
	require.NotEmpty(t, events)
	return events[len(events)-1]
}

// Scenario A: finishing the last child of an in-progress root sends the
// root to review, never straight to done.
func TestCascade_RootGoesToReview(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	root := f.seed(t, domain.TaskStatusInProgress, nil, nil)
	c1 := f.seed(t, domain.TaskStatusTodo, root, nil)
	c2 := f.seed(t, domain.TaskStatusTodo, root, nil)

	for _, c := range []*domain.Task{c1, c2} {
		_, err := f.engine.ResolveSmartTransition(f.ctx, f.member, c.ID, "in_progress")
		require.NoError(t, err)
	}

	_, err := f.engine.ResolveSmartTransition(f.ctx, f.member, c1.ID, "done")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusInProgress, f.get(t, root.ID).Status, "one child still open")

	_, err = f.engine.ResolveSmartTransition(f.ctx, f.member, c2.ID, "done")
	require.NoError(t, err)

	stored := f.get(t, root.ID)
	assert.Equal(t, domain.TaskStatusReview, stored.Status)
	assert.Nil(t, stored.CompletedAt)

	ev := lastEvent(t, f, root)
	assert.True(t, ev.AutoTriggered())
	assert.Equal(t, workflow.ActionAutoSubmitReview, ev.Payload[domain.PayloadAction])

	var leaderNotified bool
	for _, n := range f.notifier.all() {
		if n.UserID == f.leader && n.Type == domain.NotificationChildrenComplete && n.TaskID == root.ID {
			leaderNotified = true
		}
	}
	assert.True(t, leaderNotified)

	// A consistent tree is a fixed point.
	changed, err := f.engine.PropagateCompletion(f.ctx, f.member, c2.ID)
	require.NoError(t, err)
	assert.Zero(t, changed)
}

// Scenario B: finishing the last grandchild completes the subtask directly,
// then the root check runs one level up.
func TestCascade_SubtaskCompletesDirectly(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	root := f.seed(t, domain.TaskStatusInProgress, nil, nil)
	sub := f.seed(t, domain.TaskStatusInProgress, root, nil)
	g1 := f.seed(t, domain.TaskStatusInProgress, sub, nil)
	g2 := f.seed(t, domain.TaskStatusInProgress, sub, nil)

	_, err := f.engine.CompleteDirect(f.ctx, f.member, g1.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusInProgress, f.get(t, sub.ID).Status)

	_, err = f.engine.CompleteDirect(f.ctx, f.member, g2.ID)
	require.NoError(t, err)

	storedSub := f.get(t, sub.ID)
	assert.Equal(t, domain.TaskStatusDone, storedSub.Status, "subtasks skip review")
	assert.NotNil(t, storedSub.CompletedAt)
	assert.Equal(t, workflow.ActionAutoComplete, lastEvent(t, f, sub).Payload[domain.PayloadAction])

	assert.Equal(t, domain.TaskStatusReview, f.get(t, root.ID).Status, "root's only child is done")

	changed, err := f.engine.PropagateCompletion(f.ctx, f.member, g2.ID)
	require.NoError(t, err)
	assert.Zero(t, changed)
}

func TestCascade_SubtaskWithOpenSiblingKeepsRootOpen(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	root := f.seed(t, domain.TaskStatusInProgress, nil, nil)
	sub := f.seed(t, domain.TaskStatusInProgress, root, nil)
	f.seed(t, domain.TaskStatusTodo, root, nil)
	leaf := f.seed(t, domain.TaskStatusInProgress, sub, nil)

	_, err := f.engine.CompleteDirect(f.ctx, f.member, leaf.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.TaskStatusDone, f.get(t, sub.ID).Status)
	assert.Equal(t, domain.TaskStatusInProgress, f.get(t, root.ID).Status)
}

// Scenario E: reopening a child pulls a reviewing root back to in_progress.
func TestCascade_ReopenRevertsReview(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	root := f.seed(t, domain.TaskStatusReview, nil, nil)
	c1 := f.seed(t, domain.TaskStatusDone, root, nil)
	f.seed(t, domain.TaskStatusDone, root, nil)

	res, err := f.engine.ResolveSmartTransition(f.ctx, f.member, c1.ID, "in_progress")
	require.NoError(t, err)
	assert.Equal(t, workflow.OutcomeReopened, res.Outcome)
	assert.Nil(t, f.get(t, c1.ID).CompletedAt)

	assert.Equal(t, domain.TaskStatusInProgress, f.get(t, root.ID).Status)
	ev := lastEvent(t, f, root)
	assert.True(t, ev.AutoTriggered())
	assert.Equal(t, workflow.ActionAutoRevert, ev.Payload[domain.PayloadAction])

	changed, err := f.engine.PropagateRevert(f.ctx, f.member, c1.ID)
	require.NoError(t, err)
	assert.Zero(t, changed)
}

// Completing the last child and then reopening it through the smart
// transition round-trips the root through review.
func TestCascade_SmartReopenAfterAutoReview(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	root := f.seed(t, domain.TaskStatusInProgress, nil, nil)
	child := f.seed(t, domain.TaskStatusInProgress, root, nil)

	_, err := f.engine.ResolveSmartTransition(f.ctx, f.member, child.ID, "done")
	require.NoError(t, err)
	require.Equal(t, domain.TaskStatusReview, f.get(t, root.ID).Status)

	next, err := f.engine.GetAvailableTransitions(f.ctx, f.member, child.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.TaskStatus{domain.TaskStatusInProgress}, next)

	res, err := f.engine.ResolveSmartTransition(f.ctx, f.member, child.ID, "in_progress")
	require.NoError(t, err)
	assert.Equal(t, workflow.OutcomeReopened, res.Outcome)
	assert.True(t, res.StatusChanged)
	assert.Equal(t, domain.TaskStatusInProgress, f.get(t, child.ID).Status)
	assert.Equal(t, domain.TaskStatusInProgress, f.get(t, root.ID).Status)
}

func TestCascade_ReopenLeafRevertsRootThroughDoneSubtask(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	root := f.seed(t, domain.TaskStatusReview, nil, nil)
	sub := f.seed(t, domain.TaskStatusDone, root, nil)
	leaf := f.seed(t, domain.TaskStatusDone, sub, nil)

	_, err := f.engine.Reopen(f.ctx, f.member, leaf.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.TaskStatusDone, f.get(t, sub.ID).Status, "only review ancestors revert")
	assert.Equal(t, domain.TaskStatusInProgress, f.get(t, root.ID).Status)
}

func TestCascade_StartPropagatesUpward(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	root := f.seed(t, domain.TaskStatusTodo, nil, nil)
	sub := f.seed(t, domain.TaskStatusTodo, root, nil)
	leaf := f.seed(t, domain.TaskStatusTodo, sub, nil)

	_, err := f.engine.Start(f.ctx, f.member, leaf.ID)
	require.NoError(t, err)

	for _, task := range []*domain.Task{leaf, sub, root} {
		assert.Equal(t, domain.TaskStatusInProgress, f.get(t, task.ID).Status)
	}
	assert.True(t, lastEvent(t, f, sub).AutoTriggered())
	assert.True(t, lastEvent(t, f, root).AutoTriggered())
	assert.False(t, lastEvent(t, f, leaf).AutoTriggered())

	changed, err := f.engine.PropagateStart(f.ctx, f.member, leaf.ID)
	require.NoError(t, err)
	assert.Zero(t, changed)
}

func TestCascade_StartStopsAtStartedParent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	root := f.seed(t, domain.TaskStatusTodo, nil, nil)
	sub := f.seed(t, domain.TaskStatusInProgress, root, nil)
	leaf := f.seed(t, domain.TaskStatusTodo, sub, nil)

	_, err := f.engine.Start(f.ctx, f.member, leaf.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.TaskStatusTodo, f.get(t, root.ID).Status)
}

func TestCascade_FailureKeepsPrimaryTransition(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	engine := workflow.New(failingSavepoints{f.store}, f.notifier, f.publisher)

	root := f.seed(t, domain.TaskStatusInProgress, nil, nil)
	child := f.seed(t, domain.TaskStatusInProgress, root, nil)

	res, err := engine.CompleteDirect(f.ctx, f.member, child.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusDone, res.ActualStatus)

	assert.Equal(t, domain.TaskStatusDone, f.get(t, child.ID).Status)
	require.Len(t, f.events(t, child.ID), 1)
	assert.Equal(t, domain.TaskStatusInProgress, f.get(t, root.ID).Status, "cascade rolled back")
	assert.Empty(t, f.events(t, root.ID))
}

func TestCascade_ApproveDoesNotTouchOtherRoots(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	root := f.seed(t, domain.TaskStatusReview, nil, nil)
	other := f.seed(t, domain.TaskStatusInProgress, nil, nil)

	_, err := f.engine.Approve(f.ctx, f.owner, root.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusInProgress, f.get(t, other.ID).Status)
}
