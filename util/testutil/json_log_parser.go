package testutil

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/models"
)

// FindResultInLog returns the last DepositResult for depositId in the
// JSON log at pathToLogFile. The log holds one result per line.
func FindResultInLog(pathToLogFile, depositId string) (*models.DepositResult, error) {
	file, err := os.Open(pathToLogFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return FindResult(file, depositId)
}

// FindResult does the work of FindResultInLog on any reader. Lines
// that are not results are skipped.
func FindResult(reader io.Reader, depositId string) (*models.DepositResult, error) {
	var found *models.DepositResult
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		result := &models.DepositResult{}
		if err := json.Unmarshal(scanner.Bytes(), result); err != nil {
			continue
		}
		if result.DepositId == depositId {
			// Only the last known state counts.
			found = result
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("Deposit %s not found in log", depositId)
	}
	return found, nil
}
