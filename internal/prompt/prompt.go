// Package prompt assembles the grounded request sent to the language model.
package prompt

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"runvox/internal/models"
)

const template = `You are a helpful assistant on %s who has access to a database of process sessions and the work items they have processed.

Here is the data for the process sessions:
%s
It contains the process name, the process status, the session start time and the session end time.
The process status can be 'Running', 'Stopped', 'Completed' or 'Terminated'. Rules:
- A process is completed when 'process_status' is 'Completed'.
- A process is currently running when 'process_status' is 'Running'.
- A process was stopped by an operator when 'process_status' is 'Stopped'.
- A process failed when 'process_status' is 'Terminated'.

Here is the data for the work items loaded during the same period:
%s
It contains the item key, the name of the process that works it and the work queue where it is stored. Rules:
- A 'process_name' can have one or more 'workqueue_name'.
- Each 'workqueue_name' can have one or more 'item_key'.
- Each item belongs to exactly one 'workqueue_name'.
- An item is completed when 'completed' is not null.
- An item is an exception when 'exception' is not null.

Your answer will be read aloud, so reply in short plain sentences without markdown or tables.
Answer the following question based only on the data above.
%s
`

const dateLayout = "2006-01-02"

// Build renders the prompt for question grounded on the given snapshot.
// The output depends only on its arguments.
func Build(question string, sessions []models.ProcessSession, items []models.WorkItem, today time.Time) string {
	return fmt.Sprintf(template,
		today.Format(dateLayout),
		serialize(sessions),
		serialize(items),
		question,
	)
}

func serialize(v any) string {
	out, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%+v\n", v)
	}
	return string(out)
}
