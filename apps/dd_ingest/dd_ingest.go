package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/constants"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/context"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/models"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/network"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/stats"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/util/storage"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/workers"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

var (
	pathToConfigFile string
	singleDeposit    bool
)

// dd_ingest imports deposits of bags into Dataverse datasets, either
// directly from the command line or from import requests on NSQ.
func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dd_ingest",
		Short: "Imports deposits of bags into Dataverse",
		Long: `dd_ingest applies deposits to Dataverse datasets. A deposit is a
directory holding one or more bags, which are applied in name order.
The Dataverse API key is read from the environment variable
DATAVERSE_API_KEY.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&pathToConfigFile, "config", "c", "", "Path to dd_ingest config file")
	cmd.MarkPersistentFlagRequired("config")

	importCmd := &cobra.Command{
		Use:   "import <path>",
		Short: "Import the deposits in path and wait until they are done",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
	importCmd.Flags().BoolVarP(&singleDeposit, "single", "s", false, "path is one deposit, not a directory of deposits")

	enqueueCmd := &cobra.Command{
		Use:   "enqueue <path>",
		Short: "Put an import request for path into NSQ",
		Args:  cobra.ExactArgs(1),
		RunE:  runEnqueue,
	}
	enqueueCmd.Flags().BoolVarP(&singleDeposit, "single", "s", false, "path is one deposit, not a directory of deposits")

	cmd.AddCommand(
		importCmd,
		enqueueCmd,
		&cobra.Command{
			Use:   "listen",
			Short: "Run import requests from NSQ until interrupted",
			Args:  cobra.NoArgs,
			RunE:  runListen,
		},
		&cobra.Command{
			Use:   "tasklog <depositId> <bagPath>",
			Short: "Print the stored task log of a bag as YAML",
			Args:  cobra.ExactArgs(2),
			RunE:  runTaskLog,
		},
	)
	return cmd
}

func loadConfig() (*models.Config, error) {
	config, err := models.LoadConfigFile(pathToConfigFile)
	if err != nil {
		return nil, err
	}
	config.ExpandFilePaths()
	return config, nil
}

func loadContext() (*context.Context, error) {
	config, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return context.NewContext(config)
}

func runImport(cmd *cobra.Command, args []string) error {
	_context, err := loadContext()
	if err != nil {
		return err
	}
	defer _context.Close()
	registry := workers.NewImportJobRegistry(_context)
	defer registry.Close()

	job, err := registry.Submit(args[0], singleDeposit, 1)
	if err != nil {
		return err
	}
	status := job.Wait()
	for _, result := range job.Results() {
		line := fmt.Sprintf("%-10s %s", result.Outcome, result.DepositId)
		if result.PersistentId != "" {
			line += " " + result.PersistentId
		}
		if result.HasErrors() {
			line += ": " + result.FirstError()
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	_context.LogStats()
	if job.Err() != nil {
		return job.Err()
	}
	if status != constants.JobDone {
		return fmt.Errorf("Import job %s ended with status %s", job.Id, status)
	}
	return nil
}

func runListen(cmd *cobra.Command, args []string) error {
	_context, err := loadContext()
	if err != nil {
		return err
	}
	defer _context.Close()
	log := _context.MessageLog

	if _context.Config.MetricsPort > 0 {
		listener, err := net.Listen("tcp", fmt.Sprintf(":%d", _context.Config.MetricsPort))
		if err != nil {
			return fmt.Errorf("Cannot serve metrics: %v", err)
		}
		metricsServer := stats.ServeMetrics(listener, _context.Registry)
		defer metricsServer.Stop()
		log.Infof("Serving metrics on %s/metrics", listener.Addr())
	}

	registry := workers.NewImportJobRegistry(_context)
	consumer, err := workers.CreateNsqConsumer(&_context.Config.ImportWorker)
	if err != nil {
		return err
	}
	consumer.AddHandler(workers.NewDDIngester(_context, registry))
	log.Infof("Connecting to NSQLookupd at %s", _context.Config.NsqLookupd)
	if err := consumer.ConnectToNSQLookupd(_context.Config.NsqLookupd); err != nil {
		return err
	}
	log.Infof("dd_ingest listening on topic %s with config %s",
		_context.Config.ImportWorker.NsqTopic, _context.Config.ActiveConfig)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-signals:
		log.Infof("Got %v, waiting for running jobs", sig)
		consumer.Stop()
		<-consumer.StopChan
	case <-consumer.StopChan:
	}
	registry.Close()
	_context.LogStats()
	return nil
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}
	path, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	client := network.NewNSQClient(config.NsqdHttpAddress)
	request := &network.ImportRequest{Path: path, SingleDeposit: singleDeposit}
	if err := client.EnqueueImport(config.ImportWorker.NsqTopic, request); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Queued %s in topic %s\n", path, config.ImportWorker.NsqTopic)
	return nil
}

func runTaskLog(cmd *cobra.Command, args []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}
	bagPath, err := filepath.Abs(args[1])
	if err != nil {
		return err
	}
	store, err := storage.NewTaskLogStore(config)
	if err != nil {
		return err
	}
	defer store.Close()
	taskLog, err := store.Load(args[0], bagPath)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(taskLog)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
