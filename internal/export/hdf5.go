package export

import (
	"fmt"

	"gonum.org/v1/hdf5"
)

// h5Container is satisfied by both *hdf5.File and *hdf5.Group.
type h5Container interface {
	CreateDataset(name string, dtype *hdf5.Datatype, dspace *hdf5.Dataspace) (*hdf5.Dataset, error)
}

// WriteHDF5 writes the payload to an HDF5 file at path: one group per
// item holding a "values" dataset and a scalar "unit" string, plus a
// root "title" string and, when present, a one-element "slice_index".
func WriteHDF5(path string, p Payload) error {
	f, err := hdf5.CreateFile(path, hdf5.F_ACC_TRUNC)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := writeH5String(f, "title", p.Title); err != nil {
		return fmt.Errorf("title: %w", err)
	}
	for _, item := range p.Items {
		if err := writeH5Item(f, item); err != nil {
			return fmt.Errorf("item %q: %w", item.Name, err)
		}
	}
	if p.SliceIndex != nil {
		err := writeH5Doubles(f, "slice_index", []uint{1}, []float64{float64(*p.SliceIndex)})
		if err != nil {
			return fmt.Errorf("slice_index: %w", err)
		}
	}
	return nil
}

func writeH5Item(f *hdf5.File, item Item) error {
	g, err := f.CreateGroup(item.Name)
	if err != nil {
		return err
	}
	defer g.Close()

	dims := make([]uint, len(item.Shape))
	for i, n := range item.Shape {
		dims[i] = uint(n)
	}
	if err := writeH5Doubles(g, "values", dims, item.Values); err != nil {
		return fmt.Errorf("values: %w", err)
	}
	if err := writeH5String(g, "unit", item.Unit); err != nil {
		return fmt.Errorf("unit: %w", err)
	}
	return nil
}

func writeH5Doubles(c h5Container, name string, dims []uint, values []float64) error {
	space, err := hdf5.CreateSimpleDataspace(dims, nil)
	if err != nil {
		return err
	}
	defer space.Close()
	dset, err := c.CreateDataset(name, hdf5.T_NATIVE_DOUBLE, space)
	if err != nil {
		return err
	}
	defer dset.Close()
	return dset.Write(&values)
}

func writeH5String(c h5Container, name, value string) error {
	dtype, err := hdf5.NewDatatypeFromValue(value)
	if err != nil {
		return err
	}
	defer dtype.Close()
	space, err := hdf5.CreateDataspace(hdf5.S_SCALAR)
	if err != nil {
		return err
	}
	defer space.Close()
	dset, err := c.CreateDataset(name, dtype, space)
	if err != nil {
		return err
	}
	defer dset.Close()
	return dset.Write(&value)
}
