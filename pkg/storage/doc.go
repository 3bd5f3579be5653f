// Package storage reads and writes the tabular files a fetch run consumes
// and produces.
//
// The package handles:
//   - Flattening records into columns with a preferred order
//   - Writing CSV (UTF-8 with BOM) or XLSX through a temporary file and rename
//   - Reading CSV or XLSX input tables, including EUC-KR encoded CSV
//   - Locating the institution code column of an input table
//
// Usage:
//
//	manager, err := storage.NewManager("data", storage.FormatXLSX)
//	if err != nil {
//	    return err
//	}
//
//	path, err := manager.Save("hospitals_seoul", result.Items, models.ListColumns)
//	if err != nil {
//	    log.WithError(err).Error("Failed to save table")
//	    return err
//	}
//	log.WithField("path", path).Info("Table saved")
package storage
