// Package linear fits and evaluates binary logistic regression models with
// batch gradient descent.
package linear

import "math"

type Options struct {
	Epochs       int
	LearningRate float64
	// L2 is the ridge penalty applied to coefficients, not to the bias.
	L2 float64
}

type Weights struct {
	Bias         float64   `json:"bias"`
	Coefficients []float64 `json:"coefficients"`
}

type Metrics struct {
	Loss     float64
	Accuracy float64
}

// TrainLogistic fits labels in {0,1}. Every sample must have the length of
// the first one.
func TrainLogistic(samples [][]float64, labels []float64, opts Options) (Weights, Metrics) {
	if opts.Epochs <= 0 {
		opts.Epochs = 200
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = 0.01
	}
	if len(samples) == 0 {
		return Weights{}, Metrics{}
	}

	n := float64(len(samples))
	w := Weights{Coefficients: make([]float64, len(samples[0]))}
	grad := make([]float64, len(w.Coefficients))

	for epoch := 0; epoch < opts.Epochs; epoch++ {
		for j := range grad {
			grad[j] = 0
		}
		var biasGrad float64
		for i, sample := range samples {
			residual := Predict(w, sample) - labels[i]
			for j, x := range sample {
				grad[j] += residual * x
			}
			biasGrad += residual
		}
		for j := range w.Coefficients {
			w.Coefficients[j] -= opts.LearningRate * (grad[j]/n + opts.L2*w.Coefficients[j])
		}
		w.Bias -= opts.LearningRate * biasGrad / n
	}

	return w, Evaluate(w, samples, labels)
}

// Predict returns the positive-class probability of sample.
func Predict(w Weights, sample []float64) float64 {
	z := w.Bias
	for i, c := range w.Coefficients {
		z += c * sample[i]
	}
	return 1 / (1 + math.Exp(-z))
}

// Evaluate reports mean log loss and accuracy at a 0.5 threshold.
func Evaluate(w Weights, samples [][]float64, labels []float64) Metrics {
	if len(samples) == 0 {
		return Metrics{}
	}
	const eps = 1e-9
	var m Metrics
	var correct int
	for i, sample := range samples {
		p := Predict(w, sample)
		y := labels[i]
		m.Loss += -y*math.Log(p+eps) - (1-y)*math.Log(1-p+eps)
		if (p >= 0.5) == (y == 1) {
			correct++
		}
	}
	m.Loss /= float64(len(samples))
	m.Accuracy = float64(correct) / float64(len(samples))
	return m
}
