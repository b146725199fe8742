/*
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package includium

import "github.com/fwessels/includium/internal/preprocessor"

type (
	Error      = preprocessor.Error
	ErrorKind  = preprocessor.ErrorKind
	Diagnostic = preprocessor.Diagnostic
	Severity   = preprocessor.Severity
)

const (
	SyntaxError               = preprocessor.SyntaxError
	UnknownDirective          = preprocessor.UnknownDirective
	MacroRedefinitionConflict = preprocessor.MacroRedefinitionConflict
	ArgumentCountMismatch     = preprocessor.ArgumentCountMismatch
	InvalidPaste              = preprocessor.InvalidPaste
	MissingInclude            = preprocessor.MissingInclude
	RecursionLimitExceeded    = preprocessor.RecursionLimitExceeded
	UnterminatedConditional   = preprocessor.UnterminatedConditional
	UnmatchedEndif            = preprocessor.UnmatchedEndif
	DuplicateElse             = preprocessor.DuplicateElse
	ElifAfterElse             = preprocessor.ElifAfterElse
	DivisionByZero            = preprocessor.DivisionByZero
	UserError                 = preprocessor.UserError
	IoError                   = preprocessor.IoError
)

const (
	Warning = preprocessor.Warning
	Fatal   = preprocessor.Fatal
)

// Sentinels for errors.Is; they match any *Error of the same kind.
var (
	ErrSyntax           = preprocessor.ErrSyntax
	ErrUnknownDirective = preprocessor.ErrUnknownDirective
	ErrRedefinition     = preprocessor.ErrRedefinition
	ErrArgumentCount    = preprocessor.ErrArgumentCount
	ErrInvalidPaste     = preprocessor.ErrInvalidPaste
	ErrMissingInclude   = preprocessor.ErrMissingInclude
	ErrRecursionLimit   = preprocessor.ErrRecursionLimit
	ErrUnterminatedCond = preprocessor.ErrUnterminatedCond
	ErrUnmatchedEndif   = preprocessor.ErrUnmatchedEndif
	ErrDuplicateElse    = preprocessor.ErrDuplicateElse
	ErrElifAfterElse    = preprocessor.ErrElifAfterElse
	ErrDivisionByZero   = preprocessor.ErrDivisionByZero
	ErrUser             = preprocessor.ErrUser
	ErrIO               = preprocessor.ErrIO
)
