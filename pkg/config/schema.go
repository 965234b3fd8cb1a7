package config

// configSchema is checked against the raw config file before decoding so
// that structural mistakes surface with a path instead of a zero value.
const configSchema = `{
	"type": "object",
	"required": ["taiga", "tidyhq"],
	"properties": {
		"cache_expiry": {"type": "integer", "minimum": 0},
		"cache_path": {"type": "string"},
		"lock_path": {"type": "string"},
		"ledger_url": {"type": "string"},
		"taiga": {
			"type": "object",
			"required": ["url", "contact_field", "email_field", "closed_task_status", "initial_stage"],
			"properties": {
				"url": {"type": "string"},
				"username": {"type": "string"},
				"password": {"type": "string"},
				"token": {"type": "string"},
				"project": {"type": "string"},
				"tag": {"type": "string"},
				"contact_field": {"type": "string"},
				"email_field": {"type": "string"},
				"closed_task_status": {"type": "integer"},
				"initial_stage": {"type": "integer"}
			}
		},
		"tidyhq": {
			"type": "object",
			"required": ["token", "ids", "training_prefix"],
			"properties": {
				"token": {"type": "string"},
				"ids": {"type": "object"},
				"training_prefix": {"type": "string"}
			}
		},
		"chat": {
			"type": "object",
			"properties": {
				"token": {"type": "string"},
				"notify_channel": {"type": "string"}
			}
		}
	}
}`
