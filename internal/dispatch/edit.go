package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/fentz26/blockterm/internal/models"
	"github.com/fentz26/blockterm/internal/permission"
)

func editPrompt(request, current string) string {
	return fmt.Sprintf(`Edit this file based on the user's request: %q

Current file content:
%s

Please provide the complete edited file content. Only return the file content, no explanations.`, request, current)
}

// edit asks the provider for new content and writes it only after the user
// accepts it at the permission gate. A denied change is not an error.
func (d *Dispatcher) edit(ctx context.Context, target, request string) (string, error) {
	if target == "" {
		return "", errors.New("please specify a file to edit")
	}
	current, err := d.files.ReadFile(target)
	if err != nil {
		return "", err
	}

	proposed, err := d.provider.GenerateResponse(ctx, editPrompt(request, current.Content), d.aiOpts)
	if err != nil {
		return "", err
	}
	if d.provider.Info().Demo {
		return fmt.Sprintf("Demo mode: file editing is simulated. Configure an API key to enable real AI edits.\n\nRequest: %s\nFile: %s", request, target), nil
	}
	if err := d.files.CheckSize(int64(len(proposed))); err != nil {
		return "", err
	}

	diff := permission.ComputeDiff(current.Content, proposed)
	decision, err := d.gate.RequestEdit(ctx, target, proposed, models.ChangeContext{
		Reason:         "AI edit requested: " + request,
		CurrentContent: current.Content,
		Diff:           &diff,
	})
	if err != nil {
		return "", err
	}
	if !decision.Approved {
		return fmt.Sprintf("File edit was not approved; no changes made to %s.", target), nil
	}

	writeErr := d.files.WriteFile(target, proposed)
	if d.audit != nil {
		d.audit.RecordWrite(context.WithoutCancel(ctx), decision.ChangeID, current.Path, proposed, writeErr)
	}
	if writeErr != nil {
		return "", writeErr
	}
	return fmt.Sprintf("File %s has been updated with the AI edit.", target), nil
}
