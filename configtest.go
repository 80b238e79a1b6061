package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"novafund/pkg/config"
	"novafund/pkg/contract"
	"novafund/pkg/models"
	"novafund/pkg/network"
	"novafund/pkg/rpc"

	"github.com/ethereum/go-ethereum/common"
)

const testTimeout = 15 * time.Second

// runConfigTest checks the configuration structure, the provider and the
// contract. Progress is written to out unless quiet is set. The second
// return value is false when any check failed.
func runConfigTest(ctx context.Context, cfg config.Config, path string, out io.Writer, quiet bool) (models.TestReport, bool) {
	logf := func(format string, args ...interface{}) {
		if !quiet {
			_, _ = fmt.Fprintf(out, format, args...)
		}
	}

	report := models.TestReport{
		ConfigPath:      path,
		ValidStructure:  true,
		ProviderURL:     cfg.Provider.RPCURL,
		ContractAddress: cfg.Contract.Address,
	}
	logf("Testing configuration at: %s\n", path)

	report.StructureErrors = config.Validate(cfg)
	if len(report.StructureErrors) > 0 {
		report.ValidStructure = false
		for _, msg := range report.StructureErrors {
			logf("Error: %s\n", msg)
		}
		return report, false
	}
	parsed, err := contract.LoadABI(cfg.Contract.ABIPath)
	if err != nil {
		report.ValidStructure = false
		report.StructureErrors = append(report.StructureErrors, err.Error())
		logf("Error: %v\n", err)
		return report, false
	}

	ctx, cancel := context.WithTimeout(ctx, testTimeout)
	defer cancel()

	logf("Provider: %s ... ", cfg.Provider.RPCURL)
	client, err := rpc.Dial(ctx, cfg.Provider.RPCURL)
	if err != nil {
		report.ProviderStatus = "error"
		report.ProviderError = err.Error()
		logf("Failed: %v\n", err)
		return report, false
	}
	defer client.Close()

	latency, err := client.Latency(ctx)
	if err != nil {
		report.ProviderStatus = "error"
		report.ProviderError = err.Error()
		logf("Failed: %v\n", err)
		return report, false
	}
	report.Latency = latency

	chainID, err := client.ChainID(ctx)
	if err != nil {
		report.ProviderStatus = "error"
		report.ProviderError = fmt.Sprintf("Failed to get ChainID: %v", err)
		logf("Failed to get ChainID: %v\n", err)
		return report, false
	}
	report.ProviderStatus = "ok"
	net := network.Classify(chainID)
	report.Network = &models.NetworkResult{ChainID: net.ChainID, Name: net.Name, Supported: net.Supported}
	logf("OK (%s, %s, %s)", net.Name, net.ChainID, latency.Round(time.Millisecond))
	if !net.Supported {
		logf(" - WARNING: network not supported")
	}
	logf("\n")

	addr := common.HexToAddress(cfg.Contract.Address)
	logf("Contract: %s ... ", addr.Hex())
	code, err := client.CodeAt(ctx, addr)
	if err != nil {
		report.ContractError = err.Error()
		logf("Failed: %v\n", err)
		return report, false
	}
	report.ContractCode = len(code) > 0
	if !report.ContractCode {
		report.ContractError = "no contract code at address"
		logf("No contract code at address\n")
		return report, false
	}

	gw := contract.NewGateway(client, nil, addr, common.Address{}, parsed, cfg.ReceiptPollInterval())
	count, err := gw.CampaignCount(ctx)
	if err != nil {
		report.ContractError = err.Error()
		logf("Failed to read campaignCount: %v\n", err)
		return report, false
	}
	report.CampaignCount = count.Uint64()
	logf("OK (%d campaigns)\n", report.CampaignCount)

	return report, net.Supported
}
