package safe

import (
	"fmt"

	"gocv.io/x/gocv"
)

func ValidateMatForOperation(mat *Mat, operation string) error {
	if mat == nil {
		return fmt.Errorf("Mat is nil for operation: %s", operation)
	}

	if !mat.IsValid() {
		return fmt.Errorf("Mat is invalid for operation: %s", operation)
	}

	if mat.Empty() {
		return fmt.Errorf("Mat is empty for operation: %s", operation)
	}

	if mat.Rows() <= 0 || mat.Cols() <= 0 {
		return fmt.Errorf("Mat has invalid dimensions %dx%d for operation: %s",
			mat.Cols(), mat.Rows(), operation)
	}

	return nil
}

// ValidateBGRA checks that mat is an 8-bit four channel raster, the only
// layout the processing stages accept.
func ValidateBGRA(mat *Mat, operation string) error {
	if err := ValidateMatForOperation(mat, operation); err != nil {
		return err
	}

	if mat.Type() != gocv.MatTypeCV8UC4 {
		return fmt.Errorf("%s requires an 8-bit BGRA Mat, got %d channels (type %v)",
			operation, mat.Channels(), mat.Type())
	}

	return nil
}

// ValidateMask checks that mask is single channel and matches size.
func ValidateMask(mask *Mat, rows, cols int, operation string) error {
	if err := ValidateMatForOperation(mask, operation); err != nil {
		return err
	}

	if mask.Type() != gocv.MatTypeCV8UC1 {
		return fmt.Errorf("%s requires a single channel 8-bit mask, got type %v", operation, mask.Type())
	}

	if mask.Rows() != rows || mask.Cols() != cols {
		return fmt.Errorf("%s mask size %dx%d does not match %dx%d",
			operation, mask.Cols(), mask.Rows(), cols, rows)
	}

	return nil
}
