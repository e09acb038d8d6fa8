// Package csvscan is the delimited-text ingestion engine of a columnar
// data-processing pipeline: it turns the sequential byte streams of one or
// more file ranges into typed Apache Arrow record batches suitable for query
// execution or bulk loading, and can sample data to infer a schema.
//
// csvscan parses CSV-family formats with configurable multi-byte column and
// row delimiters, optional quoting and escaping, header skipping, and
// whitespace trimming. Compressed sources (gzip, bzip2, xz, zstandard) are
// unwrapped transparently based on the file extension.
//
// # Basic Usage
//
// Describe the target schema and the file ranges, then pull batches:
//
//	schema := csvscan.TargetSchema{
//	    {Name: "id", Type: arrow.PrimitiveTypes.Int64},
//	    {Name: "name", Type: arrow.BinaryTypes.String},
//	}
//	ranges := []csvscan.ScanRange{{Path: "data.csv", NumFields: 2}}
//
//	scanner, err := csvscan.NewScanner(schema, ranges, nil, csvscan.Options{
//	    Parse: csvscan.ParseOptions{
//	        ColumnDelimiter: []byte(","),
//	        RowDelimiter:    []byte("\n"),
//	    },
//	    Purpose: csvscan.PurposeLoad,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer scanner.Close()
//
//	for {
//	    batch, err := scanner.Next()
//	    if errors.Is(err, io.EOF) {
//	        break
//	    }
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    // use batch, then batch.Release()
//	}
//
// # Scan Purposes
//
// The column-count reconciliation policy is keyed by the scan purpose:
//   - PurposeLoad rejects rows whose field count differs from the schema.
//   - PurposeInsertQuery rejects rows with fewer fields and ignores extras.
//   - PurposeReadQuery fails the scan on rows with fewer fields, because a
//     query result set cannot silently drop rows.
//
// Flexible column mapping disables the checks entirely. Rejected rows are
// counted in the shared ScanCounters and reported to the error sink up to a
// bounded number of times per job.
//
// # Split Ranges
//
// A range starting at a non-zero byte offset discards the first record it
// finds there: that record is the tail of a record owned by the previous
// range, whose reader runs past its size limit to finish it.
//
// # Schema Inference
//
// InferSchema samples a bounded number of rows through the same parsing
// stage, trial-parses every field as integer, float, then boolean, and
// merges the per-row schemas position by position into the narrowest common
// supertype, naming columns $1, $2, and so on.
package csvscan
