package models

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"

	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/constants"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/util"
	"github.com/magiconair/properties"
)

// Deposit is a directory holding one or more bags that are applied,
// in name order, to one dataset.
type Deposit struct {
	Id   string
	Path string
	// UpdatesDataset is the persistent id of the existing dataset the
	// first bag updates. When empty, the first bag creates a dataset.
	UpdatesDataset string
	BagPaths       []string
}

// ReadDeposit reads deposit.properties, if present, and finds the bags
// in dir. Bags are not parsed here; see ReadBag.
func ReadDeposit(dir string) (*Deposit, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	deposit := &Deposit{
		Id:   filepath.Base(absPath),
		Path: absPath,
	}
	propsPath := filepath.Join(absPath, constants.DepositPropertiesFile)
	if _, err := os.Stat(propsPath); err == nil {
		props, err := properties.LoadFile(propsPath, properties.UTF8)
		if err != nil {
			return nil, fmt.Errorf("Cannot read %s: %v", propsPath, err)
		}
		if id := util.CleanString(props.GetString(constants.PropDepositId, "")); id != "" {
			deposit.Id = id
		}
		deposit.UpdatesDataset = util.CleanString(props.GetString(constants.PropUpdatesDataset, ""))
	}
	entries, err := ioutil.ReadDir(absPath)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			deposit.BagPaths = append(deposit.BagPaths, filepath.Join(absPath, entry.Name()))
		}
	}
	if len(deposit.BagPaths) == 0 {
		return nil, fmt.Errorf("Deposit %s contains no bags", absPath)
	}
	sort.Strings(deposit.BagPaths)
	return deposit, nil
}

// ListDeposits returns the deposit directories directly under dir, in
// name order.
func ListDeposits(dir string) ([]string, error) {
	entries, err := ioutil.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	deposits := make([]string, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			deposits = append(deposits, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(deposits)
	return deposits, nil
}
