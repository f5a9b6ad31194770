package entity

// Operator is the staff identity behind an administrative request.
// Operators are configured statically; there is no account management.
type Operator struct {
	Name       string `yaml:"name" json:"name" validate:"required"`
	Key        string `yaml:"key" json:"-" validate:"required,min=16"`
	TelegramId int64  `yaml:"telegram_id" json:"telegram_id,omitempty"`
}
