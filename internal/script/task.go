package script

import (
	"fmt"

	"github.com/fabricahq/fabrica/internal/content"
	"github.com/google/uuid"
)

type (
	TaskState int

	// ScriptTask tracks the transformation of one insight into a video
	// script artifact and, when video synthesis is enabled, a rendered
	// video clip.
	ScriptTask struct {
		id      uuid.UUID
		insight *content.Insight
		state   TaskState
		trouble error

		scriptKey string
		videoKey  string
	}
)

const (
	WAITING TaskState = iota
	GENERATING
	SYNTHESIZING
	TROUBLED
	COMPLETE
)

func (state TaskState) String() string {
	return []string{"WAITING", "GENERATING", "SYNTHESIZING", "TROUBLED", "COMPLETE"}[state]
}

func newScriptTask(insight *content.Insight) *ScriptTask {
	return &ScriptTask{
		id:      uuid.New(),
		insight: insight,
		state:   WAITING,
	}
}

func (task *ScriptTask) ID() uuid.UUID             { return task.id }
func (task *ScriptTask) Insight() *content.Insight { return task.insight }
func (task *ScriptTask) State() TaskState          { return task.state }
func (task *ScriptTask) Trouble() error            { return task.trouble }
func (task *ScriptTask) ScriptKey() string         { return task.scriptKey }
func (task *ScriptTask) VideoKey() string          { return task.videoKey }

func (task *ScriptTask) String() string {
	return fmt.Sprintf("ScriptTask{ID=%s insight=%s state=%s}", task.id, task.insight.Key, task.state)
}
