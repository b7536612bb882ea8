package constants

import "time"

// Common string constants used throughout the codebase
const (
	// Log levels
	ErrorLevel = "error"

	// Environments
	ProdEnvironment  = "prod"
	DevEnvironment   = "dev"
	LocalEnvironment = "local"

	// Zero address used as the placeholder recipient for self-addressed
	// delegation-enablement transactions
	ZeroAddress = "0x0000000000000000000000000000000000000000"

	// Intent deadlines: every intent is valid for one hour from creation
	IntentDeadlineWindow = time.Hour

	// Execution node JSON-RPC method
	ExecuteWorkflowMethod = "krnl_executeWorkflow"

	// Event emitted by the delegated account when an intent has been executed
	IntentExecutedEventSig = "IntentExecuted(bytes32,address,uint256)"

	// Confirmation polling defaults
	DefaultPollInterval   = 4 * time.Second
	DefaultPollTimeout    = 2 * time.Minute
	DefaultReceiptRetries = 30

	// Event-log queries scan at most this many blocks behind the head.
	// Scanning from genesis is never acceptable.
	DefaultLogLookbackBlocks = 2048
)

// Environment variable names read by cmd entrypoints and config
const (
	EnvStage            = "STAGE"
	EnvLogLevel         = "LOG_LEVEL"
	EnvChainRPCURL      = "CHAIN_RPC_URL"
	EnvExecutionNodeURL = "EXECUTION_NODE_URL"
	EnvDelegateContract = "DELEGATE_CONTRACT_ADDRESS"
	EnvChainID          = "CHAIN_ID"
)
