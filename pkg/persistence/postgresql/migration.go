package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Workflow graph definitions. Nodes and edges are stored as JSONB
			-- because the engine always loads the whole graph at once.
			CREATE TABLE workflows (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				status VARCHAR(50) NOT NULL CHECK (status IN ('draft', 'active', 'archived')),
				nodes JSONB NOT NULL DEFAULT '[]',
				edges JSONB NOT NULL DEFAULT '[]',
				variables JSONB DEFAULT '{}',
				owner VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_status ON workflows(status);
			CREATE INDEX idx_workflows_created_at ON workflows(created_at);

			CREATE TABLE executions (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL REFERENCES workflows(id),
				status VARCHAR(50) NOT NULL,
				contact_id VARCHAR(255),
				lead_id VARCHAR(255),
				opportunity_id VARCHAR(255),
				email_address VARCHAR(255),
				phone_number VARCHAR(100),
				trigger_data JSONB DEFAULT '{}',
				variables JSONB DEFAULT '{}',
				executed_node_ids JSONB DEFAULT '[]',
				current_node_id VARCHAR(255),
				error_message TEXT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				started_at TIMESTAMP WITH TIME ZONE,
				completed_at TIMESTAMP WITH TIME ZONE,
				failed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_executions_workflow_id ON executions(workflow_id);
			CREATE INDEX idx_executions_status ON executions(status);
			CREATE INDEX idx_executions_created_at ON executions(created_at);

			CREATE TABLE suspensions (
				id VARCHAR(255) PRIMARY KEY,
				execution_id VARCHAR(255) NOT NULL REFERENCES executions(id),
				workflow_id VARCHAR(255) NOT NULL,
				node_id VARCHAR(255) NOT NULL,
				kind VARCHAR(50) NOT NULL,
				status VARCHAR(50) NOT NULL,
				resume_at TIMESTAMP WITH TIME ZONE,
				wait_event_type VARCHAR(255),
				timeout_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_suspensions_status ON suspensions(status);
			CREATE INDEX idx_suspensions_resume_at ON suspensions(resume_at);
			CREATE INDEX idx_suspensions_wait_event_type ON suspensions(wait_event_type);

			CREATE TABLE action_records (
				id VARCHAR(255) PRIMARY KEY,
				execution_id VARCHAR(255) NOT NULL REFERENCES executions(id),
				node_id VARCHAR(255) NOT NULL,
				action_type VARCHAR(100) NOT NULL,
				config JSONB DEFAULT '{}',
				status VARCHAR(50) NOT NULL,
				result JSONB DEFAULT '{}',
				error_message TEXT,
				executed_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_action_records_execution_id ON action_records(execution_id);
			CREATE INDEX idx_action_records_executed_at ON action_records(executed_at);

			CREATE TABLE split_states (
				workflow_id VARCHAR(255) NOT NULL,
				node_id VARCHAR(255) NOT NULL,
				variant_weights JSONB NOT NULL DEFAULT '{}',
				variant_counts JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				PRIMARY KEY (workflow_id, node_id)
			);

			CREATE TABLE goals (
				id VARCHAR(255) PRIMARY KEY,
				execution_id VARCHAR(255) NOT NULL,
				workflow_id VARCHAR(255) NOT NULL,
				node_id VARCHAR(255) NOT NULL,
				goal_type VARCHAR(100) NOT NULL,
				skip_to_node_id VARCHAR(255),
				registered_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_goals_workflow_id ON goals(workflow_id);

			CREATE TABLE schedules (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL,
				cron_expression VARCHAR(255) NOT NULL,
				next_due_at TIMESTAMP WITH TIME ZONE NOT NULL,
				active BOOLEAN NOT NULL DEFAULT true,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_schedules_next_due_at ON schedules(next_due_at);
			CREATE INDEX idx_schedules_active ON schedules(active);

			CREATE TABLE daily_metrics (
				workflow_id VARCHAR(255) NOT NULL,
				date VARCHAR(10) NOT NULL,
				metric VARCHAR(100) NOT NULL,
				count BIGINT NOT NULL DEFAULT 0,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				PRIMARY KEY (workflow_id, date, metric)
			);
		`,
	}
}
