// Package engine is the seam between the training pipeline and the detector
// implementation. An Engine declares the variables it learns, computes loss
// and gradients for a batch, and produces predictions for a single image;
// everything else (parameter storage, initialization, checkpointing, the
// optimizer, and the epoch loop) lives outside it.
//
// The package ships one implementation, Regressor, a small gorgonia network
// that regresses a fixed number of box/keypoint slots per image. It exists so
// the pipeline is runnable and testable end to end; a full region-proposal
// detector can be swapped in behind the same interface without touching the
// rest of the repository.
package engine
