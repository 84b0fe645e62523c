package cellindex

import (
	"os"

	"github.com/parquet-go/parquet-go"
	"github.com/sirupsen/logrus"
)

const rowBufferSize = 1 << 14

type CellRow struct {
	S2ID   int64   `parquet:"s2_id, type=INT64"`
	Mean   float64 `parquet:"mean, type=DOUBLE"`
	Weight float64 `parquet:"weight, type=DOUBLE"`
	Pixels int64   `parquet:"pixels, type=INT64"`
}

// StreamToParquet drains the cell channel into a snappy-compressed parquet
// file, flushing every rowBufferSize rows to bound memory.
func StreamToParquet(cells <-chan CellStat, path string) error {
	output, err := os.Create(path)
	if err != nil {
		return err
	}

	schema := parquet.SchemaOf(new(CellRow))
	writer := parquet.NewGenericWriter[CellRow](output, schema, parquet.Compression(&parquet.Snappy))
	defer func() {
		if err := writer.Close(); err != nil {
			logrus.Error(err)
		}
		if err := output.Close(); err != nil {
			logrus.Error(err)
		}
	}()

	rowBuf := make([]CellRow, 0, rowBufferSize)
	flush := func() error {
		if len(rowBuf) == 0 {
			return nil
		}
		if _, err := writer.Write(rowBuf); err != nil {
			return err
		}
		if err := writer.Flush(); err != nil {
			return err
		}
		rowBuf = rowBuf[:0]
		return nil
	}

	var n int
	for cell := range cells {
		rowBuf = append(rowBuf, CellRow{int64(cell.Cell), cell.Mean, cell.Weight, cell.Pixels})
		n++
		if len(rowBuf) == rowBufferSize {
			logrus.Infof("writing cell %d", n)
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}
