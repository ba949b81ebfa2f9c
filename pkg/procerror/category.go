// Copyright 2026 Dispenso Robotics GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package procerror

import "errors"

// ErrorCategory indicates how the process core should respond to a given error.
type ErrorCategory int

const (
	// CategoryIgnored indicates an error that is expected or benign in the
	// current context and should not interrupt the dispensing run.
	// Example: a failed motion-stop call while the pump shutdown proceeds.
	CategoryIgnored ErrorCategory = iota

	// CategoryTransient indicates an error that is unexpected but recoverable,
	// typically a hardware call that may succeed on retry.
	CategoryTransient

	// CategoryPermanent indicates a fatal, unrecoverable error. Continuing
	// the run would risk energizing the wrong pump or losing supervision of
	// the robot, so the run must terminate.
	// Example: an unresolvable motor address for the active path.
	CategoryPermanent
)

// CategorizedError is a wrapper that includes the underlying error plus a Category.
type CategorizedError struct {
	Err      error
	Category ErrorCategory
}

// Error returns the original error message.
func (ce *CategorizedError) Error() string {
	return ce.Err.Error()
}

// Unwrap returns the underlying wrapped error.
func (ce *CategorizedError) Unwrap() error {
	return ce.Err
}

// IsCategory checks if the CategorizedError has the specified category.
func (ce *CategorizedError) IsCategory(category ErrorCategory) bool {
	return ce.Category == category
}

// NewIgnoredError wraps err as CategoryIgnored.
func NewIgnoredError(err error) error {
	return &CategorizedError{Err: err, Category: CategoryIgnored}
}

// NewTransientError wraps err as CategoryTransient.
func NewTransientError(err error) error {
	return &CategorizedError{Err: err, Category: CategoryTransient}
}

// NewPermanentError wraps err as CategoryPermanent.
func NewPermanentError(err error) error {
	return &CategorizedError{Err: err, Category: CategoryPermanent}
}

// Categorize ensures that every error is at least Transient if not already a
// CategorizedError.
func Categorize(err error) error {
	if err == nil {
		return nil
	}
	var ce *CategorizedError
	if errors.As(err, &ce) {
		return err
	}
	return NewTransientError(err)
}

// IsPermanent reports whether err carries CategoryPermanent.
func IsPermanent(err error) bool {
	var ce *CategorizedError
	if errors.As(err, &ce) {
		return ce.Category == CategoryPermanent
	}
	return false
}

// IsTransient reports whether err carries CategoryTransient.
func IsTransient(err error) bool {
	var ce *CategorizedError
	if errors.As(err, &ce) {
		return ce.Category == CategoryTransient
	}
	return false
}

// ExtractOriginalError attempts to unwrap all nested errors to get the root cause.
func ExtractOriginalError(err error) error {
	if err == nil {
		return nil
	}

	unwrapped := err
	for {
		next := errors.Unwrap(unwrapped)
		if next == nil {
			return unwrapped
		}
		unwrapped = next
	}
}
