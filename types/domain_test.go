// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.
//
// The go-equa library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-equa library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-equa library. If not, see <http://www.gnu.org/licenses/>.

package types

import "testing"

func TestDomainVerificationStrength(t *testing.T) {
	synthetic := Domain{SyntheticDataCapable: true}
	if synthetic.VerificationStrength() != 1.0 {
		t.Fatalf("expected synthetic-capable domain to have full verification strength")
	}
	plain := Domain{SyntheticDataCapable: false}
	if plain.VerificationStrength() != 0.5 {
		t.Fatalf("expected non-synthetic domain to have halved verification strength")
	}
}

func TestOptimaeComputeIDIsStableAndSensitiveToInputs(t *testing.T) {
	o := Optimae{
		DomainID:    "d1",
		OptimizerID: "opt-1",
		Parameters:  map[string]interface{}{"lr": 0.01, "batch_size": 32},
		CreatedAt:   1000,
	}
	id1, err := o.ComputeID()
	if err != nil {
		t.Fatalf("compute id: %v", err)
	}
	id2, err := o.ComputeID()
	if err != nil {
		t.Fatalf("compute id: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected ComputeID to be deterministic, got %s and %s", id1, id2)
	}

	changed := o
	changed.CreatedAt = 1001
	id3, err := changed.ComputeID()
	if err != nil {
		t.Fatalf("compute id: %v", err)
	}
	if id1 == id3 {
		t.Fatalf("expected different created_at to change the optimae id")
	}

	reordered := o
	reordered.Parameters = map[string]interface{}{"batch_size": 32, "lr": 0.01}
	id4, err := reordered.ComputeID()
	if err != nil {
		t.Fatalf("compute id: %v", err)
	}
	if id1 != id4 {
		t.Fatalf("expected parameter key ordering not to affect the optimae id")
	}
}
