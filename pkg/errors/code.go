package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 12000-12999: Problem & Test case errors
// 13000-13999: Submission & Judge errors
// 14000-14999: Contest & Ranking errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	TooManyRequests     ErrorCode = 10006
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008

	// Database errors (10100-10199)
	DatabaseError     ErrorCode = 10100
	RecordNotFound    ErrorCode = 10101
	TransactionFailed ErrorCode = 10103

	// Cache errors (10200-10299)
	CacheError ErrorCode = 10200
	LockFailed ErrorCode = 10203

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	RequiredFieldEmpty ErrorCode = 10303

	// ========== Problem & Test Case Errors (12000-12999) ==========

	ProblemNotFound ErrorCode = 12000

	// Test cases (12100-12199)
	TestCaseNotFound ErrorCode = 12100
	TestCaseInvalid  ErrorCode = 12102
	DataPackCorrupt  ErrorCode = 12110

	// ========== Submission & Judge Errors (13000-13999) ==========

	SubmissionNotFound   ErrorCode = 13000
	LanguageNotSupported ErrorCode = 13003

	// Judge (13100-13199)
	JudgeQueueFull   ErrorCode = 13100
	JudgeSystemError ErrorCode = 13101
	CompilationError ErrorCode = 13102

	// ========== Contest & Ranking Errors (14000-14999) ==========

	ContestNotFound   ErrorCode = 14000
	ContestNotStarted ErrorCode = 14001
	ContestEnded      ErrorCode = 14002

	// Ranking (14200-14299)
	ProblemNotInContest ErrorCode = 14200
	LetterRangeExceeded ErrorCode = 14201
	RankUpdateFailed    ErrorCode = 14202
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	// System & Common
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	TooManyRequests:     "Too many requests, please try again later",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	// Database
	DatabaseError:     "Database operation failed",
	RecordNotFound:    "Record not found in database",
	TransactionFailed: "Database transaction failed",

	// Cache
	CacheError: "Cache operation failed",
	LockFailed: "Failed to acquire lock",

	// Validation
	ValidationFailed:   "Validation failed",
	RequiredFieldEmpty: "Required field is empty",

	// Problem & Test cases
	ProblemNotFound:  "Problem not found",
	TestCaseNotFound: "Test cases not found",
	TestCaseInvalid:  "Invalid test case layout",
	DataPackCorrupt:  "Test case data pack is corrupt",

	// Submission & Judge
	SubmissionNotFound:   "Submission not found",
	LanguageNotSupported: "Programming language not supported",
	JudgeQueueFull:       "Judge queue is full, please try again later",
	JudgeSystemError:     "Judge system error",
	CompilationError:     "Compilation error",

	// Contest & Ranking
	ContestNotFound:     "Contest not found",
	ContestNotStarted:   "Contest has not started yet",
	ContestEnded:        "Contest has ended",
	ProblemNotInContest: "Problem is not part of this contest",
	LetterRangeExceeded: "Contest problem index exceeds letter range",
	RankUpdateFailed:    "Failed to update contest rank",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == NotFound, c == RecordNotFound, c == ProblemNotFound,
		c == TestCaseNotFound, c == SubmissionNotFound, c == ContestNotFound:
		return 404
	case c == TooManyRequests, c == JudgeQueueFull:
		return 429
	case c == ServiceUnavailable:
		return 503
	case c >= 10300 && c < 10400:
		return 400
	case c == InvalidParams, c == LanguageNotSupported,
		c == ProblemNotInContest, c == LetterRangeExceeded:
		return 400
	default:
		return 500
	}
}
