package models

// ExperimentSpec is what the experiment intended. It is kept beside the
// event stream, never inside it, so intent and outcome cannot be conflated.
type ExperimentSpec struct {
	Preconditions       []ContractTerm       `json:"preconditions" yaml:"preconditions"`
	Postconditions      []ContractTerm       `json:"postconditions" yaml:"postconditions"`
	Predictions         []PredictionRecord   `json:"predictions" yaml:"predictions"`
	Interventions       []InterventionRecord `json:"interventions" yaml:"interventions"`
	ControlledVariables []ControlledVariable `json:"controlled_variables" yaml:"controlled_variables"`
	DAGRefs             []DAGReference       `json:"dag_refs" yaml:"dag_refs"`
	Provenance          ProvenanceAnchor     `json:"provenance" yaml:"provenance"`
}

// ContractTerm is a precondition or postcondition.
type ContractTerm struct {
	ID          SpecElementID `json:"id" yaml:"id"`
	Description string        `json:"description" yaml:"description"`
	Layer       Layer         `json:"layer" yaml:"layer"`
}

// PredictionRecord is a falsifiable prediction about a variable.
type PredictionRecord struct {
	ID             SpecElementID `json:"id" yaml:"id"`
	Variable       string        `json:"variable" yaml:"variable"`
	PredictedValue Value         `json:"predicted_value" yaml:"predicted_value"`
	Tolerance      *float64      `json:"tolerance,omitempty" yaml:"tolerance,omitempty"`
}

// InterventionRecord lists the values a parameter was deliberately set to.
type InterventionRecord struct {
	ID        SpecElementID `json:"id" yaml:"id"`
	Parameter string        `json:"parameter" yaml:"parameter"`
	Values    []Value       `json:"values" yaml:"values"`
}

// ControlledVariable is a parameter held fixed across the experiment.
type ControlledVariable struct {
	ID        SpecElementID `json:"id" yaml:"id"`
	Parameter string        `json:"parameter" yaml:"parameter"`
	HeldValue Value         `json:"held_value" yaml:"held_value"`
}

// DAGReference points at a node of the externally owned causal graph.
type DAGReference struct {
	NodeID  string   `json:"node_id" yaml:"node_id"`
	EdgeIDs []string `json:"edge_ids,omitempty" yaml:"edge_ids,omitempty"`
}

// Prediction returns the prediction with the given id.
func (s *ExperimentSpec) Prediction(id SpecElementID) (PredictionRecord, bool) {
	for _, p := range s.Predictions {
		if p.ID == id {
			return p, true
		}
	}
	return PredictionRecord{}, false
}

// IsControlled reports whether parameter is held fixed by the experiment spec.
func (s *ExperimentSpec) IsControlled(parameter string) bool {
	for _, c := range s.ControlledVariables {
		if c.Parameter == parameter {
			return true
		}
	}
	return false
}
