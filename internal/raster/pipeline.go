package raster

// Stage transforms a raster. A stage may modify r in place and return it, or
// return a new raster, in which case the pipeline continues with the new one.
type Stage interface {
	Process(r *Raster) (*Raster, error)
}

// Pipeline runs the stages in order and returns the final raster.
func (r *Raster) Pipeline(stages ...Stage) (*Raster, error) {
	cur := r
	for _, stage := range stages {
		next, err := stage.Process(cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}
