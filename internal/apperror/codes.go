package apperror

// Code is a stable, machine-readable error identifier. Codes are logged as
// error_code and matched with errors.Is.
type Code string

const (
	CodeUnknownError Code = "UNKNOWN_ERROR"

	// Input and construction
	CodeRequiredField      Code = "REQUIRED_FIELD"
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeConfigurationError Code = "CONFIGURATION_ERROR"
	CodeUnsupportedNetwork Code = "UNSUPPORTED_NETWORK"
	CodeInvalidSourceFork  Code = "INVALID_SOURCE_FORK"

	// Node access
	CodeEthereumConnectionFailed Code = "ETHEREUM_CONNECTION_FAILED"
	CodeEthereumRPCError         Code = "ETHEREUM_RPC_ERROR"
	CodeRateLimitExceeded        Code = "RATE_LIMIT_EXCEEDED"
	CodeCircuitOpen              Code = "CIRCUIT_OPEN"

	// Pool discovery and the pool snapshot store
	CodeDiscoveryFailed   Code = "DISCOVERY_FAILED"
	CodeDiscoveryTimeout  Code = "DISCOVERY_TIMEOUT"
	CodeInvalidPoolRecord Code = "INVALID_POOL_RECORD"
	CodeSnapshotFailed    Code = "SNAPSHOT_FAILED"

	// Quote operations
	CodeEncodeFailed    Code = "ENCODE_FAILED"
	CodeDecodeFailed    Code = "DECODE_FAILED"
	CodeBatchCallFailed Code = "BATCH_CALL_FAILED"
	CodeSampleMismatch  Code = "SAMPLE_MISMATCH"
)

type codeInfo struct {
	message   string
	retryable bool
}

var codes = map[Code]codeInfo{
	CodeUnknownError: {message: "unknown error"},

	CodeRequiredField:      {message: "required field is missing"},
	CodeInvalidInput:       {message: "invalid input"},
	CodeConfigurationError: {message: "invalid configuration"},
	CodeUnsupportedNetwork: {message: "network not supported by this source"},
	CodeInvalidSourceFork:  {message: "invalid source fork"},

	CodeEthereumConnectionFailed: {message: "cannot reach ethereum node", retryable: true},
	CodeEthereumRPCError:         {message: "ethereum rpc call failed", retryable: true},
	CodeRateLimitExceeded:        {message: "rate limit exceeded", retryable: true},
	CodeCircuitOpen:              {message: "circuit breaker is open", retryable: true},

	CodeDiscoveryFailed:   {message: "pool discovery query failed", retryable: true},
	CodeDiscoveryTimeout:  {message: "pool discovery query timed out", retryable: true},
	CodeInvalidPoolRecord: {message: "malformed pool record"},
	CodeSnapshotFailed:    {message: "pool snapshot store failed"},

	CodeEncodeFailed:    {message: "cannot encode sampler call"},
	CodeDecodeFailed:    {message: "cannot decode sampler result"},
	CodeBatchCallFailed: {message: "batched sampler call failed", retryable: true},
	CodeSampleMismatch:  {message: "sample count does not match requested amounts"},
}
