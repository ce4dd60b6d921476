package util

// Envelope is the JSON body of every API response. Status is 1 on success and
// 0 on failure so clients can branch without inspecting HTTP codes.
type Envelope map[string]any

func Error(message string) Envelope {
	return Envelope{"status": 0, "message": message}
}

func Success(message string) Envelope {
	return Envelope{"status": 1, "success": message}
}
