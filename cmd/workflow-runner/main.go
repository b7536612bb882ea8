package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/krnl-labs/krnl-go/client/chain"
	"github.com/krnl-labs/krnl-go/client/codec"
	"github.com/krnl-labs/krnl-go/client/executionnode"
	"github.com/krnl-labs/krnl-go/client/signer"
	"github.com/krnl-labs/krnl-go/config"
	"github.com/krnl-labs/krnl-go/logger"
	"github.com/krnl-labs/krnl-go/services"
	"go.uber.org/zap"
)

// workflow-runner drives the delegated-execution core from the command
// line: check or enable an account's delegation, or run a full intent flow
// against the execution node.
func main() {
	// Load .env file for local development
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v. Proceeding with environment variables.", err)
	}

	action := flag.String("action", "status", "status | enable | run")
	account := flag.String("account", "", "account address (defaults to signer address)")
	target := flag.String("target", "", "intent target address (run)")
	value := flag.String("value", "0", "intent value in wei (run)")
	nodeAddress := flag.String("node", "", "automation node address (run)")
	templatePath := flag.String("template", "", "workflow template JSON file (run)")
	privateKey := flag.String("key", os.Getenv("SIGNER_PRIVATE_KEY"), "hex private key for the local signer")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.InitLogger(cfg.Stage)
	defer func() { _ = logger.Sync() }()

	if *privateKey == "" {
		logger.Fatal("A signer private key is required (-key or SIGNER_PRIVATE_KEY)")
	}

	localSigner, err := signer.NewLocalSigner(*privateKey)
	if err != nil {
		logger.Fatal("Failed to create signer", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	chainClient, err := chain.Dial(ctx, cfg.ChainRPCURL)
	if err != nil {
		logger.Fatal("Failed to connect to chain RPC", zap.Error(err))
	}
	defer chainClient.Close()

	bridge := services.NewCodecBridge(codec.NewGethCodec())

	accountAddr := localSigner.Address()
	if *account != "" {
		if !common.IsHexAddress(*account) {
			logger.Fatal("Invalid account address", zap.String("account", *account))
		}
		accountAddr = common.HexToAddress(*account)
	}

	authService := services.NewAuthorizationService(chainClient, chainClient, bridge, localSigner,
		services.AuthorizationServiceConfig{
			DelegateContract: cfg.DelegateContractAddress,
			ChainID:          cfg.ChainID,
			PollInterval:     cfg.PollInterval,
		})

	switch *action {
	case "status":
		status, err := authService.CheckStatus(ctx, accountAddr)
		if err != nil {
			logger.Fatal("Status check failed", zap.Error(err))
		}
		logger.Info("Authorization status",
			zap.String("account", accountAddr.Hex()),
			zap.Bool("smart_account_enabled", status.SmartAccountEnabled),
			zap.Bool("is_authorized", status.IsAuthorized),
			zap.String("delegate_contract", status.ContractAddress.Hex()),
		)

	case "enable":
		result, err := authService.Enable(ctx, accountAddr)
		if err != nil {
			logger.Fatal("Enablement failed",
				zap.String("state", string(result.State)),
				zap.Error(err),
			)
		}
		logger.Info("Enablement finished",
			zap.String("state", string(result.State)),
			zap.String("tx_hash", result.TxHash.Hex()),
		)

	case "run":
		runIntentFlow(ctx, cfg, chainClient, localSigner, accountAddr, *target, *value, *nodeAddress, *templatePath)

	default:
		logger.Fatal("Unknown action", zap.String("action", *action))
	}
}

func runIntentFlow(
	ctx context.Context,
	cfg *config.Config,
	chainClient *chain.Client,
	localSigner *signer.LocalSigner,
	sender common.Address,
	target, value, nodeAddress, templatePath string,
) {
	if !common.IsHexAddress(target) {
		logger.Fatal("A valid -target address is required")
	}
	if !common.IsHexAddress(nodeAddress) {
		logger.Fatal("A valid -node address is required")
	}
	intentValue, ok := new(big.Int).SetString(value, 10)
	if !ok {
		logger.Fatal("Invalid -value", zap.String("value", value))
	}

	template := map[string]interface{}{}
	if templatePath != "" {
		raw, err := os.ReadFile(templatePath)
		if err != nil {
			logger.Fatal("Failed to read workflow template", zap.Error(err))
		}
		if err := json.Unmarshal(raw, &template); err != nil {
			logger.Fatal("Workflow template is not valid JSON", zap.Error(err))
		}
	} else {
		template = defaultTemplate()
	}

	nodeClient, err := executionnode.NewClient(executionnode.ClientConfig{Endpoint: cfg.ExecutionNodeURL})
	if err != nil {
		logger.Fatal("Failed to create execution node client", zap.Error(err))
	}

	validator, err := services.NewValidatorService(chainClient)
	if err != nil {
		logger.Fatal("Failed to create validator", zap.Error(err))
	}

	workflows := services.NewWorkflowService(
		nodeClient,
		chainClient,
		services.NewIntentService(),
		localSigner,
		validator,
		services.WorkflowServiceConfig{
			PollInterval:   cfg.PollInterval,
			LookbackBlocks: cfg.LogLookbackBlocks,
		},
	)

	result, err := workflows.RunIntentFlow(ctx, services.IntentFlowParams{
		Sender:              sender,
		Target:              common.HexToAddress(target),
		Value:               intentValue,
		NodeAddress:         common.HexToAddress(nodeAddress),
		WorkflowTemplate:    template,
		ConfirmationTimeout: cfg.PollTimeout,
	})
	if err != nil {
		if result != nil && result.Submission != nil {
			// Submitted but unconfirmed: the on-chain effect is unresolved.
			logger.Warn("Workflow submitted but not confirmed",
				zap.String("intent_id", result.Intent.ID.Hex()),
				zap.String("request_id", result.Submission.RequestID),
				zap.Error(err),
			)
			return
		}
		logger.Fatal("Intent flow failed", zap.Error(err))
	}

	fields := []zap.Field{
		zap.String("intent_id", result.Intent.ID.Hex()),
		zap.String("request_id", result.Submission.RequestID),
	}
	if result.Confirmation != nil {
		fields = append(fields,
			zap.String("tx_hash", result.Confirmation.TransactionHash.Hex()),
			zap.Uint64("block_number", result.Confirmation.BlockNumber),
		)
	}
	logger.Info("Intent flow complete", fields...)
}

func defaultTemplate() map[string]interface{} {
	return map[string]interface{}{
		"version": "1.0",
		"intent": map[string]interface{}{
			"id":        "{{INTENT_ID}}",
			"sender":    "{{SENDER}}",
			"target":    "{{TARGET}}",
			"value":     "{{VALUE}}",
			"nonce":     "{{NONCE}}",
			"deadline":  "{{DEADLINE}}",
			"signature": "{{SIGNATURE}}",
		},
		"node": map[string]interface{}{
			"address": "{{NODE_ADDRESS}}",
		},
	}
}
