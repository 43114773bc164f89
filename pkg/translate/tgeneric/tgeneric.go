package tgeneric

import "errors"

func MassConvert[T any, O any](item []T, convFunc func(T) O) []O {
	arr := make([]O, len(item))
	for i, v := range item {
		arr[i] = convFunc(v)
	}
	return arr
}

func MassConvertWithErr[T any, O any](item []T, convFunc func(T) (O, error)) ([]O, error) {
	arr := make([]O, len(item))
	var err error
	for i, v := range item {
		arr[i], err = convFunc(v)
		if err != nil {
			return nil, err
		}
	}
	return arr, nil
}

// ReplaceRootWithSub swaps rootError for subError when got wraps rootError.
// Any other error, including nil, is returned unchanged.
func ReplaceRootWithSub(rootError, subError, got error) error {
	if got != nil && errors.Is(got, rootError) {
		return subError
	}
	return got
}
