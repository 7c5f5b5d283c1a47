package errors

// Convenience functions for common error patterns

// Config errors

func ConfigNotFound(path string) *CareError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func ConfigRequired(field string) *CareError {
	return New(CategoryConfig, SeverityFatal, "required configuration missing").
		WithContext("field", field)
}

func ValidationFailed(field, reason string) *CareError {
	return New(CategoryValidation, SeverityFatal, "validation failed").
		WithContext("field", field).
		WithContext("reason", reason)
}

// Telegram errors

func TelegramAPIError(method string, cause error) *CareError {
	return Wrap(cause, CategoryTelegram, SeverityError, "telegram api call failed").
		WithContext("method", method)
}

func DeliveryFailed(chatID int64, cause error) *CareError {
	return WrapRetryable(cause, CategoryDelivery, SeverityWarning, "message delivery failed").
		WithContext("chat_id", chatID)
}

// Confirmation errors

func UnauthorizedConfirm(chatID int64) *CareError {
	return New(CategoryUnauthorized, SeverityWarning, "confirmation from non-recipient chat").
		WithContext("chat_id", chatID)
}

func MalformedToken(token string) *CareError {
	return New(CategoryMalformedInput, SeverityWarning, "malformed confirmation token").
		WithContext("token", token)
}

// Storage errors

func StorageError(operation string, cause error) *CareError {
	return Wrap(cause, CategoryStorage, SeverityError, "storage operation failed").
		WithContext("operation", operation)
}

// Relay errors

func RelayError(operation string, cause error) *CareError {
	return Wrap(cause, CategoryRelay, SeverityWarning, "relay operation failed").
		WithContext("operation", operation)
}

// Scheduler errors

func SchedulerError(operation string, cause error) *CareError {
	return Wrap(cause, CategoryScheduler, SeverityError, "scheduler operation failed").
		WithContext("operation", operation)
}

// Internal errors

func InternalError(message string, cause error) *CareError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
