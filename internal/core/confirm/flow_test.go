package confirm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	results []Result
}

func (r *recorder) done(res Result) {
	r.results = append(r.results, res)
}

func TestFlow_ConfirmInvokesOnceAndCloses(t *testing.T) {
	var f Flow
	rec := &recorder{}

	f.Open(Prompt{Title: "Quit", Message: "Really quit?"}, rec.done)
	require.True(t, f.IsOpen())
	assert.Equal(t, "Quit", f.Prompt().Title)

	f.Confirm()
	f.Confirm()
	f.Cancel()

	assert.Equal(t, []Result{Confirmed}, rec.results)
	assert.Equal(t, StateClosed, f.State())
	assert.Equal(t, Prompt{}, f.Prompt())
}

func TestFlow_Cancel(t *testing.T) {
	var f Flow
	rec := &recorder{}

	f.Open(Prompt{Title: "Leave"}, rec.done)
	f.Cancel()

	assert.Equal(t, []Result{Cancelled}, rec.results)
	assert.False(t, f.IsOpen())
}

func TestFlow_OpenWhileOpenCancelsFirst(t *testing.T) {
	var f Flow
	first := &recorder{}
	second := &recorder{}

	f.Open(Prompt{Title: "first"}, first.done)
	f.Open(Prompt{Title: "second"}, second.done)

	assert.Equal(t, []Result{Cancelled}, first.results)
	assert.Equal(t, "second", f.Prompt().Title)

	f.Confirm()

	assert.Equal(t, []Result{Cancelled}, first.results, "first callback must never see Confirmed")
	assert.Equal(t, []Result{Confirmed}, second.results)
}

func TestFlow_CallbackMayReopen(t *testing.T) {
	var f Flow
	followUp := &recorder{}

	f.Open(Prompt{Title: "step 1"}, func(r Result) {
		if r == Confirmed {
			f.Open(Prompt{Title: "step 2"}, followUp.done)
		}
	})
	f.Confirm()

	require.True(t, f.IsOpen())
	assert.Equal(t, "step 2", f.Prompt().Title)

	f.Cancel()
	assert.Equal(t, []Result{Cancelled}, followUp.results)
}

func TestFlow_OpenCancelsFollowUpOfDisplacedPrompt(t *testing.T) {
	var f Flow
	followUp := &recorder{}
	second := &recorder{}

	f.Open(Prompt{Title: "first"}, func(r Result) {
		if r == Cancelled {
			f.Open(Prompt{Title: "follow-up"}, followUp.done)
		}
	})
	f.Open(Prompt{Title: "second"}, second.done)

	assert.Equal(t, []Result{Cancelled}, followUp.results)
	require.True(t, f.IsOpen())
	assert.Equal(t, "second", f.Prompt().Title)

	f.Confirm()
	assert.Equal(t, []Result{Cancelled}, followUp.results)
	assert.Equal(t, []Result{Confirmed}, second.results)
}

func TestFlow_ClosedIsNoop(t *testing.T) {
	var f Flow
	f.Confirm()
	f.Cancel()
	assert.Equal(t, StateClosed, f.State())
}
