package domain

import "time"

// TriggerKind — причина запуска цикла.
type TriggerKind string

const (
	// TriggerSlot — запуск по настроенному временному слоту.
	TriggerSlot TriggerKind = "slot"
	// TriggerTick — безусловный поминутный запуск монитора.
	TriggerTick TriggerKind = "tick"
	// TriggerManual — разовый запуск оператором.
	TriggerManual TriggerKind = "manual"
)

// AccountReport — итог обработки одного аккаунта за цикл.
type AccountReport struct {
	Account      string
	Shop         string
	FetchedTotal int
	Processed    int
	FilesCreated []string
	LabelsSaved  int
	LabelsFailed int
	Success      bool
	Error        string
}

// CycleReport агрегирует итоги одного цикла по всем аккаунтам.
// Отчёт уходит в Notifier и возвращается вызывающему коду.
type CycleReport struct {
	CycleID    string
	Trigger    TriggerKind
	StartedAt  time.Time
	FinishedAt time.Time
	Accounts   []AccountReport
}

// TotalProcessed возвращает суммарное число обработанных заказов за цикл.
func (r CycleReport) TotalProcessed() int {
	total := 0
	for _, acc := range r.Accounts {
		total += acc.Processed
	}
	return total
}

// FilesCreated собирает пути всех созданных batch-файлов цикла.
func (r CycleReport) FilesCreated() []string {
	var files []string
	for _, acc := range r.Accounts {
		files = append(files, acc.FilesCreated...)
	}
	return files
}

// HasFailures сообщает, были ли в цикле аккаунты с ошибками.
func (r CycleReport) HasFailures() bool {
	for _, acc := range r.Accounts {
		if !acc.Success {
			return true
		}
	}
	return false
}
