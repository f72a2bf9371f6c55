package lf

import (
	"time"

	"go.uber.org/zap"
)

const (
	FieldModule     = "module"
	FieldBuildID    = "build_id"
	FieldBuildName  = "build_name"
	FieldPipelineID = "pipeline_id"
	FieldProjectID  = "project_id"
	FieldWebhookID  = "webhook_id"
	FieldLevel      = "level"
	FieldURL        = "url"
	FieldAttempt    = "attempt"
	FieldMaxRetries = "max_retries"
	FieldStatusCode = "status_code"
	FieldBackoff    = "backoff"
	FieldWebhooks   = "webhooks"
)

func Module(module string) zap.Field {
	return zap.String(FieldModule, module)
}

func BuildID(ID int64) zap.Field {
	return zap.Int64(FieldBuildID, ID)
}

func BuildName(name string) zap.Field {
	return zap.String(FieldBuildName, name)
}

func PipelineID(ID int64) zap.Field {
	return zap.Int64(FieldPipelineID, ID)
}

func ProjectID(ID string) zap.Field {
	return zap.String(FieldProjectID, ID)
}

func WebhookID(ID string) zap.Field {
	return zap.String(FieldWebhookID, ID)
}

func Level(level string) zap.Field {
	return zap.String(FieldLevel, level)
}

func URL(url string) zap.Field {
	return zap.String(FieldURL, url)
}

func Attempt(attempt int) zap.Field {
	return zap.Int(FieldAttempt, attempt)
}

func MaxRetries(retries int) zap.Field {
	return zap.Int(FieldMaxRetries, retries)
}

func StatusCode(code int) zap.Field {
	return zap.Int(FieldStatusCode, code)
}

func Backoff(d time.Duration) zap.Field {
	return zap.Duration(FieldBackoff, d)
}

func Webhooks(count int) zap.Field {
	return zap.Int(FieldWebhooks, count)
}
