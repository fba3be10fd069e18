package utils

func Ptr[T any](v T) *T {
	return &v
}

func FirstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
