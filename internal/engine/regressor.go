package engine

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/ironsheep/keypoint-train/internal/dataset"
)

// RegressorConfig sizes the built-in engine.
type RegressorConfig struct {
	// InputSize is the side length images are pooled down to before the
	// dense layers.
	InputSize int

	// MaxObjects is the number of box/keypoint slots predicted per image.
	// Ground truth beyond this count is ignored during loss computation.
	MaxObjects int

	// NumKeypoints is the keypoint count per object.
	NumKeypoints int

	// Features and Hidden size the two dense layers. The feature projection
	// plays the backbone role and its variables carry the backbone. prefix.
	Features int
	Hidden   int
}

// DefaultRegressorConfig returns the stock sizing for the given keypoint count.
func DefaultRegressorConfig(numKeypoints int) RegressorConfig {
	return RegressorConfig{
		InputSize:    32,
		MaxObjects:   8,
		NumKeypoints: numKeypoints,
		Features:     128,
		Hidden:       64,
	}
}

// Regressor is a fixed-capacity box and keypoint regressor on a gorgonia
// graph: pooled pixels → feature projection → hidden layer → one output slot
// per candidate object. The objective is masked mean squared error over the
// filled slots, with coordinates normalized by image dimensions.
type Regressor struct {
	cfg RegressorConfig
}

// NewRegressor validates the config and builds the engine.
func NewRegressor(cfg RegressorConfig) (*Regressor, error) {
	if cfg.InputSize <= 0 || cfg.MaxObjects <= 0 || cfg.NumKeypoints <= 0 ||
		cfg.Features <= 0 || cfg.Hidden <= 0 {
		return nil, fmt.Errorf("regressor: all config sizes must be positive: %+v", cfg)
	}
	return &Regressor{cfg: cfg}, nil
}

func (r *Regressor) inDim() int   { return 3 * r.cfg.InputSize * r.cfg.InputSize }
func (r *Regressor) slotDim() int { return 4 + 3*r.cfg.NumKeypoints }
func (r *Regressor) outDim() int  { return r.cfg.MaxObjects * r.slotDim() }

// VariableSpecs declares the projection (backbone) and head variables.
func (r *Regressor) VariableSpecs() []VariableSpec {
	return []VariableSpec{
		{Name: "backbone.proj.weight", Shape: []int{r.inDim(), r.cfg.Features}, Trainable: true},
		{Name: "backbone.proj.bias", Shape: []int{1, r.cfg.Features}, Trainable: true},
		{Name: "head.fc.weight", Shape: []int{r.cfg.Features, r.cfg.Hidden}, Trainable: true},
		{Name: "head.fc.bias", Shape: []int{1, r.cfg.Hidden}, Trainable: true},
		{Name: "head.out.weight", Shape: []int{r.cfg.Hidden, r.outDim()}, Trainable: true},
		{Name: "head.out.bias", Shape: []int{1, r.outDim()}, Trainable: true},
	}
}

// graph wires the forward pass for a batch of b feature rows and returns the
// prediction node plus the variable nodes keyed by name.
func (r *Regressor) graph(g *G.ExprGraph, b int) (x, pred *G.Node, varNodes map[string]*G.Node, err error) {
	x = G.NewMatrix(g, tensor.Float32, G.WithShape(b, r.inDim()), G.WithName("x"))

	varNodes = make(map[string]*G.Node)
	for _, spec := range r.VariableSpecs() {
		varNodes[spec.Name] = G.NewMatrix(g, tensor.Float32,
			G.WithShape(spec.Shape[0], spec.Shape[1]), G.WithName(spec.Name))
	}

	feats, err := denseLayer(x, varNodes["backbone.proj.weight"], varNodes["backbone.proj.bias"], true)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("backbone projection: %w", err)
	}
	hidden, err := denseLayer(feats, varNodes["head.fc.weight"], varNodes["head.fc.bias"], true)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("head fc: %w", err)
	}
	pred, err = denseLayer(hidden, varNodes["head.out.weight"], varNodes["head.out.bias"], false)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("head out: %w", err)
	}
	return x, pred, varNodes, nil
}

func denseLayer(x, w, b *G.Node, relu bool) (*G.Node, error) {
	xw, err := G.Mul(x, w)
	if err != nil {
		return nil, err
	}
	out, err := G.BroadcastAdd(xw, b, nil, []byte{0})
	if err != nil {
		return nil, err
	}
	if relu {
		return G.Rectify(out)
	}
	return out, nil
}

// Step computes the masked MSE loss and its gradients for one batch.
func (r *Regressor) Step(batch *dataset.Batch, vars map[string]*tensor.Dense) (float32, map[string]*tensor.Dense, error) {
	if batch.Size() == 0 {
		return 0, nil, fmt.Errorf("regressor: empty batch")
	}
	if err := r.checkVars(vars); err != nil {
		return 0, nil, err
	}

	b := batch.Size()
	xData := make([]float32, 0, b*r.inDim())
	yData := make([]float32, 0, b*r.outDim())
	mData := make([]float32, 0, b*r.outDim())
	for i := range batch.Inputs {
		feats, err := r.featurize(batch.Inputs[i])
		if err != nil {
			return 0, nil, fmt.Errorf("regressor: sample %d: %w", i, err)
		}
		xData = append(xData, feats...)

		y, m, err := r.slotTargets(batch.Inputs[i], batch.Targets[i])
		if err != nil {
			return 0, nil, fmt.Errorf("regressor: sample %d: %w", i, err)
		}
		yData = append(yData, y...)
		mData = append(mData, m...)
	}

	g := G.NewGraph()
	x, pred, varNodes, err := r.graph(g, b)
	if err != nil {
		return 0, nil, err
	}
	y := G.NewMatrix(g, tensor.Float32, G.WithShape(b, r.outDim()), G.WithName("y"))
	m := G.NewMatrix(g, tensor.Float32, G.WithShape(b, r.outDim()), G.WithName("mask"))

	diff, err := G.Sub(pred, y)
	if err != nil {
		return 0, nil, err
	}
	masked, err := G.HadamardProd(diff, m)
	if err != nil {
		return 0, nil, err
	}
	sq, err := G.Square(masked)
	if err != nil {
		return 0, nil, err
	}
	loss, err := G.Mean(sq)
	if err != nil {
		return 0, nil, err
	}

	trainNames := make([]string, 0, len(varNodes))
	wrt := make(G.Nodes, 0, len(varNodes))
	for _, spec := range r.VariableSpecs() {
		if spec.Trainable {
			trainNames = append(trainNames, spec.Name)
			wrt = append(wrt, varNodes[spec.Name])
		}
	}
	gradNodes, err := G.Grad(loss, wrt...)
	if err != nil {
		return 0, nil, fmt.Errorf("regressor: backward: %w", err)
	}

	if err := G.Let(x, tensor.New(tensor.WithShape(b, r.inDim()), tensor.WithBacking(xData))); err != nil {
		return 0, nil, err
	}
	if err := G.Let(y, tensor.New(tensor.WithShape(b, r.outDim()), tensor.WithBacking(yData))); err != nil {
		return 0, nil, err
	}
	if err := G.Let(m, tensor.New(tensor.WithShape(b, r.outDim()), tensor.WithBacking(mData))); err != nil {
		return 0, nil, err
	}
	for name, node := range varNodes {
		if err := G.Let(node, vars[name]); err != nil {
			return 0, nil, fmt.Errorf("regressor: bind %s: %w", name, err)
		}
	}

	vm := G.NewTapeMachine(g)
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		return 0, nil, fmt.Errorf("regressor: forward/backward: %w", err)
	}

	lossVal, ok := loss.Value().Data().(float32)
	if !ok {
		return 0, nil, fmt.Errorf("regressor: loss is not float32")
	}

	grads := make(map[string]*tensor.Dense, len(gradNodes))
	for i, gn := range gradNodes {
		gd, ok := gn.Value().(*tensor.Dense)
		if !ok {
			return 0, nil, fmt.Errorf("regressor: gradient of %s has unexpected type", trainNames[i])
		}
		grads[trainNames[i]] = gd.Clone().(*tensor.Dense)
	}
	return lossVal, grads, nil
}

// Predict runs the forward pass for a single image and unpacks the slots.
func (r *Regressor) Predict(input *tensor.Dense, vars map[string]*tensor.Dense) (*Prediction, error) {
	if err := r.checkVars(vars); err != nil {
		return nil, err
	}
	feats, err := r.featurize(input)
	if err != nil {
		return nil, err
	}

	g := G.NewGraph()
	x, pred, varNodes, err := r.graph(g, 1)
	if err != nil {
		return nil, err
	}
	if err := G.Let(x, tensor.New(tensor.WithShape(1, r.inDim()), tensor.WithBacking(feats))); err != nil {
		return nil, err
	}
	for name, node := range varNodes {
		if err := G.Let(node, vars[name]); err != nil {
			return nil, fmt.Errorf("regressor: bind %s: %w", name, err)
		}
	}

	vm := G.NewTapeMachine(g)
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		return nil, fmt.Errorf("regressor: forward: %w", err)
	}

	out, ok := pred.Value().Data().([]float32)
	if !ok {
		return nil, fmt.Errorf("regressor: prediction is not []float32")
	}

	shape := input.Shape()
	h, w := float64(shape[1]), float64(shape[2])
	slot := r.slotDim()
	p := &Prediction{}
	for j := 0; j < r.cfg.MaxObjects; j++ {
		v := out[j*slot : (j+1)*slot]
		box := []float64{
			float64(v[0]) * w, float64(v[1]) * h,
			float64(v[2]) * w, float64(v[3]) * h,
		}
		kps := make([][]float64, r.cfg.NumKeypoints)
		for k := 0; k < r.cfg.NumKeypoints; k++ {
			kps[k] = []float64{
				float64(v[4+3*k]) * w,
				float64(v[4+3*k+1]) * h,
				float64(v[4+3*k+2]),
			}
		}
		p.Boxes = append(p.Boxes, box)
		p.Keypoints = append(p.Keypoints, kps)
		p.Scores = append(p.Scores, 1)
	}
	return p, nil
}

func (r *Regressor) checkVars(vars map[string]*tensor.Dense) error {
	for _, spec := range r.VariableSpecs() {
		v, ok := vars[spec.Name]
		if !ok {
			return fmt.Errorf("regressor: missing variable %s", spec.Name)
		}
		got := v.Shape()
		if len(got) != len(spec.Shape) {
			return fmt.Errorf("regressor: variable %s has rank %d, want %d", spec.Name, len(got), len(spec.Shape))
		}
		for i := range got {
			if got[i] != spec.Shape[i] {
				return fmt.Errorf("regressor: variable %s has shape %v, want %v", spec.Name, got, spec.Shape)
			}
		}
	}
	return nil
}

// featurize average-pools a (3, H, W) input down to (3, S, S) and flattens it.
func (r *Regressor) featurize(input *tensor.Dense) ([]float32, error) {
	shape := input.Shape()
	if len(shape) != 3 || shape[0] != 3 {
		return nil, fmt.Errorf("input shape %v, want (3, H, W)", shape)
	}
	h, w := shape[1], shape[2]
	if h == 0 || w == 0 {
		return nil, fmt.Errorf("input has empty spatial dimensions %v", shape)
	}
	data, ok := input.Data().([]float32)
	if !ok {
		return nil, fmt.Errorf("input is not float32")
	}

	s := r.cfg.InputSize
	out := make([]float32, 3*s*s)
	plane := h * w
	for c := 0; c < 3; c++ {
		for sy := 0; sy < s; sy++ {
			y0, y1 := sy*h/s, (sy+1)*h/s
			if y1 <= y0 {
				y1 = y0 + 1
			}
			if y1 > h {
				y1 = h
			}
			if y0 >= h {
				y0 = h - 1
			}
			for sx := 0; sx < s; sx++ {
				x0, x1 := sx*w/s, (sx+1)*w/s
				if x1 <= x0 {
					x1 = x0 + 1
				}
				if x1 > w {
					x1 = w
				}
				if x0 >= w {
					x0 = w - 1
				}
				var sum float32
				for y := y0; y < y1; y++ {
					for x := x0; x < x1; x++ {
						sum += data[c*plane+y*w+x]
					}
				}
				out[c*s*s+sy*s+sx] = sum / float32((y1-y0)*(x1-x0))
			}
		}
	}
	return out, nil
}

// slotTargets packs one target into the padded slot layout plus its mask,
// with coordinates normalized by the image dimensions.
func (r *Regressor) slotTargets(input *tensor.Dense, target *dataset.Target) (y, mask []float32, err error) {
	shape := input.Shape()
	h, w := float32(shape[1]), float32(shape[2])

	boxes, ok := target.Boxes.Data().([]float32)
	if !ok {
		return nil, nil, fmt.Errorf("target boxes are not float32")
	}
	kps, ok := target.Keypoints.Data().([]float32)
	if !ok {
		return nil, nil, fmt.Errorf("target keypoints are not float32")
	}

	n := target.NumObjects()
	if kpObjects := target.Keypoints.Shape()[0]; kpObjects != n {
		return nil, nil, fmt.Errorf("target has %d boxes but %d keypoint objects", n, kpObjects)
	}
	if kpPer := target.Keypoints.Shape()[1]; kpPer != r.cfg.NumKeypoints {
		return nil, nil, fmt.Errorf("target has %d keypoints per object, engine expects %d", kpPer, r.cfg.NumKeypoints)
	}

	slot := r.slotDim()
	y = make([]float32, r.outDim())
	mask = make([]float32, r.outDim())
	for j := 0; j < n && j < r.cfg.MaxObjects; j++ {
		base := j * slot
		y[base+0] = boxes[j*4+0] / w
		y[base+1] = boxes[j*4+1] / h
		y[base+2] = boxes[j*4+2] / w
		y[base+3] = boxes[j*4+3] / h
		for k := 0; k < r.cfg.NumKeypoints; k++ {
			kbase := (j*r.cfg.NumKeypoints + k) * 3
			y[base+4+3*k+0] = kps[kbase+0] / w
			y[base+4+3*k+1] = kps[kbase+1] / h
			y[base+4+3*k+2] = kps[kbase+2]
		}
		for d := 0; d < slot; d++ {
			mask[base+d] = 1
		}
	}
	return y, mask, nil
}
