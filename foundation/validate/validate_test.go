package validate_test

import (
	"testing"

	"github.com/cloutcontracts/cloutnet/foundation/validate"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

type deployment struct {
	ContractHash string `json:"contractHash" validate:"required"`
	Address      string `json:"address" validate:"required,ethaddr"`
}

func TestCheck(t *testing.T) {
	t.Log("Given the need to validate request models.")
	{
		t.Logf("\tTest 0:\tWhen handling a valid model.")
		{
			d := deployment{ContractHash: "abc", Address: "0xF01813E4B85e178A83e29B8E7bF26BD830a25f32"}
			if err := validate.Check(d); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to validate the model: %s", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to validate the model.", success)
		}

		t.Logf("\tTest 1:\tWhen handling a model with a bad address.")
		{
			d := deployment{ContractHash: "abc", Address: "not-an-address"}
			err := validate.Check(d)
			if !validate.IsFieldErrors(err) {
				t.Fatalf("\t%s\tTest 1:\tShould get field errors: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould get field errors.", success)

			fields := validate.GetFieldErrors(err).Fields()
			if _, exists := fields["address"]; !exists {
				t.Logf("\t%s\tTest 1:\tgot: %v", failed, fields)
				t.Fatalf("\t%s\tTest 1:\tShould name the address field.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould name the address field.", success)
		}
	}
}
