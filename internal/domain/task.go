package domain

// Task - задание из каталога, награда в алмазах
type Task struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Reward      int64  `json:"reward" yaml:"reward"`
	URL         string `json:"url" yaml:"url"`
}
