package taskstore

import "calendar-todo/backend/internal/models"

// Stats はタスクの集計結果です。
type Stats struct {
	Total     int
	ToDo      int
	Completed int
	Important int
	Progress  int // 完了率 (0-100)
	Headline  string
	Detail    string
}

var progressMessages = [...]struct{ headline, detail string }{
	{"Keep going!", "You're just getting started."},
	{"Great Job!", "You're making progress."},
	{"Almost halfway there!", "Keep it up."},
	{"You're so close!", "Just a little more to go!"},
	{"Hurrah!", "You did it!"},
}

// Summarize はタスクを集計し、完了率に応じたメッセージを付けます。
func Summarize(tasks []models.Task) Stats {
	var st Stats
	for _, t := range tasks {
		st.Total++
		if t.IsCompleted {
			st.Completed++
		} else {
			st.ToDo++
		}
		if t.IsImportant {
			st.Important++
		}
	}
	if st.Total > 0 {
		st.Progress = st.Completed * 100 / st.Total
	}

	idx := st.Progress / 25
	if idx > len(progressMessages)-1 {
		idx = len(progressMessages) - 1
	}
	st.Headline = progressMessages[idx].headline
	st.Detail = progressMessages[idx].detail
	return st
}
