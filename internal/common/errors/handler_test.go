package errors

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

// fakeGateway answers the job commands the handler sends; every other
// gateway call panics through the nil embedded interface.
type fakeGateway struct {
	pb.GatewayClient
	sendErr error
	failed  []*pb.FailJobRequest
	thrown  []*pb.ThrowErrorRequest
}

func (g *fakeGateway) FailJob(ctx context.Context, in *pb.FailJobRequest, opts ...grpc.CallOption) (*pb.FailJobResponse, error) {
	g.failed = append(g.failed, in)
	return &pb.FailJobResponse{}, g.sendErr
}

func (g *fakeGateway) ThrowError(ctx context.Context, in *pb.ThrowErrorRequest, opts ...grpc.CallOption) (*pb.ThrowErrorResponse, error) {
	g.thrown = append(g.thrown, in)
	return &pb.ThrowErrorResponse{}, g.sendErr
}

func noRetry(context.Context, error) bool { return false }

type fakeJobClient struct {
	gateway *fakeGateway
}

func (c fakeJobClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	return commands.NewCompleteJobCommand(c.gateway, noRetry)
}

func (c fakeJobClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	return commands.NewFailJobCommand(c.gateway, noRetry)
}

func (c fakeJobClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	return commands.NewThrowErrorCommand(c.gateway, noRetry)
}

type recordingLogger struct {
	messages []string
	fields   []map[string]interface{}
}

func (l *recordingLogger) Error(msg string, fields map[string]interface{}) {
	l.messages = append(l.messages, msg)
	l.fields = append(l.fields, fields)
}

func testJob(retries int32) entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 42, Type: "search-sold-listings", Retries: retries}}
}

func TestHandleJobError_FailsRetryableJob(t *testing.T) {
	gw := &fakeGateway{}
	log := &recordingLogger{}

	NewErrorHandler(log).HandleJobError(context.Background(), fakeJobClient{gw}, testJob(3),
		NewMarketplaceTimeoutError(context.DeadlineExceeded))

	require.Len(t, gw.failed, 1)
	assert.Empty(t, gw.thrown)
	assert.Equal(t, int64(42), gw.failed[0].JobKey)
	assert.Equal(t, int32(2), gw.failed[0].Retries)
	assert.Equal(t, []string{"job failed"}, log.messages)
}

func TestHandleJobError_ThrowsBusinessError(t *testing.T) {
	gw := &fakeGateway{}

	NewErrorHandler(&recordingLogger{}).HandleJobError(context.Background(), fakeJobClient{gw}, testJob(3),
		NewValidationError("keywords must not be empty"))

	require.Len(t, gw.thrown, 1)
	assert.Empty(t, gw.failed)
	assert.Equal(t, string(ErrCodeValidationFailed), gw.thrown[0].ErrorCode)
}

func TestHandleJobError_LogsSendFailures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"fail command", NewMarketplaceRequestError(stderrors.New("502")), "failed to send fail job command"},
		{"throw command", NewValidationError("bad input"), "failed to send throw error job command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{sendErr: stderrors.New("gateway unavailable")}
			log := &recordingLogger{}

			NewErrorHandler(log).HandleJobError(context.Background(), fakeJobClient{gw}, testJob(3), tt.err)

			require.Len(t, log.messages, 2)
			assert.Equal(t, tt.wantMsg, log.messages[1])
			assert.Equal(t, "gateway unavailable", log.fields[1]["error"])
			assert.Equal(t, int64(42), log.fields[1]["jobKey"])
		})
	}
}
